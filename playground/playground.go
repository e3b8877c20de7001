// Package playground ties the checker and the executor together: a
// snippet runs only when it checks without errors.
package playground

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/checker"
	"github.com/caffeineduck/tsplay/diagnostic"
	"github.com/caffeineduck/tsplay/executor"
	"github.com/caffeineduck/tsplay/sandbox"
)

// Outcome classifies a CheckAndRun call.
type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"  // check errors, not executed
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFaulted   Outcome = "faulted"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeFailed    Outcome = "failed"
)

// Event is passed to the observer after every CheckAndRun.
type Event struct {
	Outcome  Outcome
	Errors   int
	Warnings int
	Duration time.Duration // execution time; zero when rejected
}

// CompilationResult is returned once per CheckAndRun call.
type CompilationResult struct {
	Success  bool                    `json:"success"`
	Output   string                  `json:"output"`
	Errors   []diagnostic.Diagnostic `json:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings"`
}

// Checker reports diagnostics for a snippet.
type Checker interface {
	Check(ctx context.Context, source string) checker.Result
}

// Runner executes a snippet that passed the checker.
type Runner interface {
	Run(ctx context.Context, source string, opts ...executor.Option) executor.Result
}

// Service checks and runs snippets.
type Service struct {
	checker  Checker
	runner   Runner
	logger   *zap.Logger
	observer func(Event)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for run outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithObserver registers a callback invoked after every CheckAndRun.
func WithObserver(fn func(Event)) Option {
	return func(s *Service) {
		s.observer = fn
	}
}

// New returns a Service.
func New(c Checker, r Runner, opts ...Option) *Service {
	s := &Service{checker: c, runner: r, logger: zap.NewNop(), observer: func(Event) {}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check runs only the static checker.
func (s *Service) Check(ctx context.Context, source string) checker.Result {
	return s.checker.Check(ctx, source)
}

// CheckAndRun checks source and, when there are no errors, executes it.
// Warnings never block execution. An execution failure becomes a single
// positionless error and the output is left empty.
func (s *Service) CheckAndRun(ctx context.Context, source string, opts ...executor.Option) CompilationResult {
	checked := s.checker.Check(ctx, source)
	res := CompilationResult{
		Errors:   checked.Errors,
		Warnings: checked.Warnings,
	}
	if len(res.Errors) > 0 {
		s.logger.Debug("check failed", zap.Int("errors", len(res.Errors)))
		s.observe(OutcomeRejected, res, 0)
		return res
	}

	run := s.runner.Run(ctx, source, opts...)
	if run.Error != nil {
		s.logger.Debug("run failed", zap.Error(run.Error), zap.Duration("duration", run.Duration))
		res.Errors = append(res.Errors, diagnostic.Diagnostic{Message: run.Error.Error()})
		s.observe(classify(run.Error), res, run.Duration)
		return res
	}

	res.Success = true
	res.Output = run.Output
	if res.Output == "" {
		res.Output = executor.NoOutput
	}
	s.logger.Debug("run succeeded",
		zap.Int("lines", len(run.Lines)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("duration", run.Duration),
	)
	s.observe(OutcomeSucceeded, res, run.Duration)
	return res
}

func (s *Service) observe(o Outcome, res CompilationResult, d time.Duration) {
	s.observer(Event{Outcome: o, Errors: len(res.Errors), Warnings: len(res.Warnings), Duration: d})
}

func classify(err error) Outcome {
	var fault *sandbox.Fault
	switch {
	case errors.Is(err, sandbox.ErrTimeout):
		return OutcomeTimedOut
	case errors.As(err, &fault):
		return OutcomeFaulted
	default:
		return OutcomeFailed
	}
}
