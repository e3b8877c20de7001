package executor

import (
	"context"

	"github.com/caffeineduck/tsplay/sandbox"
)

// gojaEngine runs programs in-process; each Execute gets its own runtime.
type gojaEngine struct {
	cfg sandbox.Config
}

func newGojaEngine(cfg executorConfig) *gojaEngine {
	return &gojaEngine{cfg: sandbox.Config{MaxCallStackSize: cfg.maxCallStackSize}}
}

func (g *gojaEngine) Name() string {
	return EngineGoja
}

func (g *gojaEngine) Execute(ctx context.Context, program string) ([]string, error) {
	res := sandbox.Run(ctx, program, g.cfg)
	return res.Lines, res.Error
}

func (g *gojaEngine) Close() error {
	return nil
}
