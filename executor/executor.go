package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/sandbox"
)

// NoOutput is reported when a run completes without logging anything.
const NoOutput = "No output"

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("executor closed")

// Lowerer turns TypeScript into JavaScript the engine can run. It must
// not type-check; diagnostics are the checker's job.
type Lowerer interface {
	Lower(source string) (string, error)
}

// Engine runs a lowered program in a fresh capability scope and returns
// the captured console lines. Implementations must honour ctx's deadline
// and report it as sandbox.ErrTimeout.
type Engine interface {
	Name() string
	Execute(ctx context.Context, program string) ([]string, error)
	Close() error
}

// Result holds the output and metadata from a run.
type Result struct {
	Output   string
	Lines    []string
	Duration time.Duration
	Error    error
}

// Executor lowers TypeScript and runs it on an Engine.
type Executor struct {
	lowerer Lowerer
	engine  Engine
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
}

// New creates an Executor that lowers source with lowerer.
func New(lowerer Lowerer, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	engine, err := newEngine(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	cfg.logger.Debug("executor ready",
		zap.String("engine", engine.Name()),
		zap.Duration("timeout", cfg.timeout),
	)

	return &Executor{
		lowerer: lowerer,
		engine:  engine,
		timeout: cfg.timeout,
		logger:  cfg.logger,
	}, nil
}

func newEngine(ctx context.Context, cfg executorConfig) (Engine, error) {
	switch cfg.engine {
	case "", EngineGoja:
		return newGojaEngine(cfg), nil
	case EngineQuickJS:
		path := cfg.quickjsPath
		if path == "" {
			path = DefaultQuickJSPath()
		}
		module, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load quickjs module: %w (run `tsplay engine fetch`)", err)
		}
		return newQuickJSEngine(ctx, module, cfg)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.engine)
	}
}

// WrapLines is the number of lines Wrap puts before the source.
const WrapLines = 1

// Wrap encloses source in an immediately-invoked async arrow whose promise
// is returned, so top-level await is legal once the program is compiled
// as a function body.
func Wrap(source string) string {
	return "return (async () => {\n" + source + "\n})();"
}

// Engine returns the name of the engine runs execute on.
func (e *Executor) Engine() string {
	return e.engine.Name()
}

// Run lowers source, executes it and waits for its pending work to
// settle or the timeout to expire.
func (e *Executor) Run(ctx context.Context, source string, opts ...Option) Result {
	start := time.Now()

	cfg := runConfig{timeout: e.timeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return Result{Error: ErrClosed}
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	program, err := e.lowerer.Lower(Wrap(source))
	if err != nil {
		return Result{
			Error:    &sandbox.Fault{Message: err.Error()},
			Duration: time.Since(start),
		}
	}

	lines, err := e.engine.Execute(ctx, program)
	result := Result{
		Output:   JoinOutput(lines),
		Lines:    lines,
		Duration: time.Since(start),
		Error:    err,
	}

	e.logger.Debug("run finished",
		zap.String("engine", e.engine.Name()),
		zap.Int("lines", len(lines)),
		zap.Duration("duration", result.Duration),
		zap.Error(err),
	)
	return result
}

// JoinOutput joins captured lines with newlines, or returns NoOutput when
// nothing was captured.
func JoinOutput(lines []string) string {
	if len(lines) == 0 {
		return NoOutput
	}
	return strings.Join(lines, "\n")
}

// Close releases the engine. Runs in flight complete first.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.engine.Close()
}

// DefaultCacheDir is where downloaded engines and compiled modules live.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "tsplay")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "tsplay")
	}
	return filepath.Join(os.TempDir(), "tsplay-cache")
}

// DefaultQuickJSPath is where `tsplay engine fetch` stores the QuickJS
// WASI module.
func DefaultQuickJSPath() string {
	return filepath.Join(DefaultCacheDir(), "qjs.wasm")
}
