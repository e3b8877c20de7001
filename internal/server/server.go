// Package server exposes the playground over HTTP and WebSocket.
//
// Endpoints:
//
//	POST /api/run            check, then run when there are no errors
//	POST /api/check          diagnostics only
//	GET  /api/examples       snippet catalogue
//	GET  /api/examples/:name one snippet
//	GET  /ws                 live editor session
//	GET  /health             liveness
//	GET  /metrics            Prometheus metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/checker"
	"github.com/caffeineduck/tsplay/executor"
	"github.com/caffeineduck/tsplay/playground"
)

// Playground is the service the server fronts.
type Playground interface {
	Check(ctx context.Context, source string) checker.Result
	CheckAndRun(ctx context.Context, source string, opts ...executor.Option) playground.CompilationResult
}

// Config holds server settings.
type Config struct {
	Addr            string
	Debounce        time.Duration // delay before a live edit is checked and run
	MaxSourceBytes  int64
	MaxRunTimeout   time.Duration // upper bound for a per-request timeout
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server settings.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8080",
		Debounce:        time.Second,
		MaxSourceBytes:  64 << 10,
		MaxRunTimeout:   10 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the playground API.
type Server struct {
	cfg      Config
	svc      Playground
	log      *zap.Logger
	metrics  *Metrics
	router   *gin.Engine
	upgrader websocket.Upgrader

	// sessions is cancelled on shutdown to end hijacked websocket sessions.
	sessions      context.Context
	closeSessions context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics shares a metrics set, typically one whose ObserveRun is
// also registered on the playground service.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds a Server and its routes.
func New(svc Playground, cfg Config, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.MaxRunTimeout <= 0 {
		cfg.MaxRunTimeout = def.MaxRunTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Server{cfg: cfg, svc: svc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	s.sessions, s.closeSessions = context.WithCancel(context.Background())
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), traceMiddleware(), accessLog(s.log, s.metrics))

	api := r.Group("/api", limitBody(s.cfg.MaxSourceBytes+4096))
	api.POST("/run", s.handleRun)
	api.POST("/check", s.handleCheck)
	api.GET("/examples", s.handleExamples)
	api.GET("/examples/:name", s.handleExample)

	r.GET("/ws", s.handleWS)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	r.NoRoute(func(c *gin.Context) {
		fail(c, CodeNotFound, "route not found")
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	srv.RegisterOnShutdown(s.closeSessions)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
