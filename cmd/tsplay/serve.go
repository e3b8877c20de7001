package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the playground HTTP server",
		Long: `Start an HTTP server exposing the playground.

Endpoints:
  POST   /api/run              Check, then run when there are no errors
  POST   /api/check            Diagnostics only
  GET    /api/examples         Example snippets
  GET    /api/examples/{name}  One example snippet
  GET    /ws                   Live editor session (debounced edits)
  GET    /health               Health check
  GET    /metrics              Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "Address to listen on")
	cmd.Flags().Duration("debounce", time.Second, "Delay before a live edit is checked and run")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := server.NewMetrics()
	c, err := a.build(ctx, metrics.ObserveRun)
	if err != nil {
		return err
	}
	defer c.Close()

	sc := a.cfg.Server
	srv := server.New(c.service, server.Config{
		Addr:            sc.Addr,
		Debounce:        sc.Debounce,
		MaxSourceBytes:  sc.MaxSourceBytes,
		MaxRunTimeout:   10 * a.cfg.Engine.Timeout,
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		ShutdownTimeout: sc.ShutdownTimeout,
	}, server.WithLogger(a.log), server.WithMetrics(metrics))

	a.log.Info("starting server",
		zap.String("addr", sc.Addr),
		zap.String("engine", c.executor.Engine()),
		zap.String("analyzer", c.checker.Analyzer().Name()),
	)
	cmd.PrintErrf("tsplay server listening on %s\n", sc.Addr)
	return srv.ListenAndServe(ctx)
}
