package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/cache"
	"github.com/caffeineduck/tsplay/checker"
	"github.com/caffeineduck/tsplay/executor"
	"github.com/caffeineduck/tsplay/internal/config"
	"github.com/caffeineduck/tsplay/language/tsc"
	"github.com/caffeineduck/tsplay/language/typescript"
	"github.com/caffeineduck/tsplay/playground"
)

// app carries what every command needs once the root command has loaded
// configuration.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

// components are the long-lived pieces built from configuration.
type components struct {
	checker  *checker.Checker
	executor *executor.Executor
	service  *playground.Service
	closers  []io.Closer
}

func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newAnalyzer picks the analyzer. In auto mode tsc is used when it can be
// found, otherwise the in-process analyzer.
func (a *app) newAnalyzer() checker.Analyzer {
	cfg := a.cfg.Analyzer
	compiler := tsc.New(
		tsc.WithCommand(cfg.TscPath),
		tsc.WithTimeout(cfg.Timeout),
	)
	switch cfg.Name {
	case "tsc":
		return compiler
	case "auto":
		err := compiler.Available()
		if err == nil {
			return compiler
		}
		a.log.Warn("tsc not found, falling back to the in-process analyzer; only syntax and annotation errors are reported",
			zap.String("tsc_path", cfg.TscPath), zap.Error(err))
	}
	return typescript.New()
}

func (a *app) newCache(ctx context.Context) (cache.Store, error) {
	c := a.cfg.Cache
	switch c.Backend {
	case "memory":
		return cache.NewLRU(c.Size, c.TTL), nil
	case "redis":
		rc := cache.DefaultRedisConfig()
		rc.Addr = c.RedisAddr
		rc.Password = c.RedisPassword
		rc.DB = c.RedisDB
		rc.TTL = c.TTL
		if c.Prefix != "" {
			rc.KeyPrefix = c.Prefix
		}
		return cache.NewRedis(ctx, rc)
	default:
		return nil, nil
	}
}

func (a *app) newChecker(ctx context.Context) (*checker.Checker, io.Closer, error) {
	opts := []checker.Option{checker.WithLogger(a.log)}
	store, err := a.newCache(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("diagnostics cache: %w", err)
	}
	if store != nil {
		opts = append(opts, checker.WithCache(store, a.cfg.Cache.TTL))
	}
	return checker.New(a.newAnalyzer(), opts...), store, nil
}

func (a *app) newExecutor() (*executor.Executor, error) {
	e := a.cfg.Engine
	opts := []executor.ExecutorOption{
		executor.WithEngine(e.Name),
		executor.WithDefaultTimeout(e.Timeout),
		executor.WithMaxCallStackSize(e.MaxCallStackSize),
		executor.WithLogger(a.log),
	}
	if e.QuickJSModule != "" {
		opts = append(opts, executor.WithQuickJSModule(e.QuickJSModule))
	}
	if e.DiskCache {
		opts = append(opts, executor.WithDiskCache(e.CacheDir))
	}
	if pages := memoryPages(e.MemoryLimitMB); pages > 0 {
		opts = append(opts, executor.WithMemoryLimit(pages))
	}
	// Types are stripped by esbuild whichever analyzer checks them.
	return executor.New(typescript.New(typescript.WithLineOffset(executor.WrapLines)), opts...)
}

// build wires checker, executor and service. observer may be nil.
func (a *app) build(ctx context.Context, observer func(playground.Event)) (*components, error) {
	c := &components{}

	chk, store, err := a.newChecker(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		c.closers = append(c.closers, store)
	}
	c.checker = chk

	exec, err := a.newExecutor()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, exec)
	c.executor = exec

	opts := []playground.Option{playground.WithLogger(a.log)}
	if observer != nil {
		opts = append(opts, playground.WithObserver(observer))
	}
	c.service = playground.New(chk, exec, opts...)
	return c, nil
}

// memoryPages converts megabytes to 64KB wasm pages.
func memoryPages(mb int) uint32 {
	if mb <= 0 {
		return 0
	}
	return uint32(mb) * 16
}
