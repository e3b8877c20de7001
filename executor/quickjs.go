package executor

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/caffeineduck/tsplay/sandbox"
)

//go:embed shim.js
var shim string

// quickJSEngine runs programs in a QuickJS WASI guest under wazero. The
// module is compiled once; every Execute instantiates it afresh.
type quickJSEngine struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled wazero.CompiledModule
}

func newQuickJSEngine(ctx context.Context, module []byte, cfg executorConfig) (*quickJSEngine, error) {
	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = DefaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	closeAll := func() {
		rt.Close(ctx)
		if cache != nil {
			cache.Close(ctx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		closeAll()
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, module)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("compile quickjs: %w", err)
	}

	return &quickJSEngine{runtime: rt, cache: cache, compiled: compiled}, nil
}

func (q *quickJSEngine) Name() string {
	return EngineQuickJS
}

func (q *quickJSEngine) Execute(ctx context.Context, program string) ([]string, error) {
	script, err := shimScript(program)
	if err != nil {
		return nil, err
	}

	protocol := newProtocolHandler()
	moduleConfig := wazero.NewModuleConfig().
		WithStdout(io.Discard).
		WithStderr(protocol).
		WithArgs("qjs", "--std", "-e", script).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithName("")

	_, err = q.runtime.InstantiateModule(ctx, q.compiled, moduleConfig)
	lines := protocol.Lines()

	if ctx.Err() != nil {
		return lines, sandbox.ContextError(ctx)
	}
	if msg, ok := protocol.Fault(); ok {
		return lines, &sandbox.Fault{Message: msg}
	}
	var exitErr *sys.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 0) {
		if stderr := strings.TrimSpace(protocol.Stderr()); stderr != "" {
			return lines, fmt.Errorf("execution failed: %w: %s", err, stderr)
		}
		return lines, fmt.Errorf("execution failed: %w", err)
	}
	if protocol.Pending() > 0 {
		// the guest's loop drained while promises were still unsettled
		<-ctx.Done()
		return lines, sandbox.ContextError(ctx)
	}
	return lines, nil
}

func (q *quickJSEngine) Close() error {
	ctx := context.Background()

	var errs []error
	if err := q.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if q.cache != nil {
		if err := q.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// shimScript applies the shim to program, passed as a JSON string literal.
func shimScript(program string) (string, error) {
	literal, err := json.Marshal(program)
	if err != nil {
		return "", fmt.Errorf("encode program: %w", err)
	}
	return strings.TrimSpace(shim) + "(" + string(literal) + ");", nil
}
