package executor

import (
	"time"

	"go.uber.org/zap"
)

// Engine names accepted by WithEngine.
const (
	EngineGoja    = "goja"
	EngineQuickJS = "quickjs"
)

// DefaultTimeout bounds a run when no timeout is configured.
const DefaultTimeout = 2 * time.Second

// Option configures a single run.
type Option func(*runConfig)

type runConfig struct {
	timeout time.Duration
}

// WithTimeout overrides the executor's timeout for one run.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	engine           string
	timeout          time.Duration
	logger           *zap.Logger
	maxCallStackSize int
	quickjsPath      string
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = default (4GB)
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		engine:           EngineGoja,
		timeout:          DefaultTimeout,
		logger:           zap.NewNop(),
		maxCallStackSize: 4096,
	}
}

// WithEngine selects the engine by name: EngineGoja (default) or
// EngineQuickJS.
func WithEngine(name string) ExecutorOption {
	return func(c *executorConfig) {
		c.engine = name
	}
}

// WithDefaultTimeout sets the timeout applied to every run.
func WithDefaultTimeout(d time.Duration) ExecutorOption {
	return func(c *executorConfig) {
		c.timeout = d
	}
}

// WithLogger sets the logger for run summaries.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.logger = l
	}
}

// WithMaxCallStackSize limits recursion depth in the goja engine.
func WithMaxCallStackSize(n int) ExecutorOption {
	return func(c *executorConfig) {
		c.maxCallStackSize = n
	}
}

// WithQuickJSModule sets the path of the QuickJS WASI module. Defaults to
// DefaultQuickJSPath.
func WithQuickJSModule(path string) ExecutorOption {
	return func(c *executorConfig) {
		c.quickjsPath = path
	}
}

// WithDiskCache enables a persistent compilation cache for the QuickJS
// module. Optionally provide a custom directory; otherwise uses
// DefaultCacheDir.
//
// Examples:
//
//	executor.New(ts, executor.WithEngine(executor.EngineQuickJS), executor.WithDiskCache())
//	executor.New(ts, executor.WithEngine(executor.EngineQuickJS), executor.WithDiskCache("/tmp/cache"))
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit sets the maximum memory available to the QuickJS guest.
// Each page is 64KB. Examples:
//   - WithMemoryLimit(256) = 16MB max
//   - WithMemoryLimit(1024) = 64MB max
//
// Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit16MB  uint32 = 256  // 16 MB
	MemoryLimit64MB  uint32 = 1024 // 64 MB
	MemoryLimit256MB uint32 = 4096 // 256 MB
)
