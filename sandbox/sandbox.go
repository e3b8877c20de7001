// Package sandbox runs lowered JavaScript in a goja runtime whose only
// capabilities are a mock console and mock timers.
//
// Every Run builds a fresh runtime, output buffer and timer queue; nothing
// survives between runs. The program is compiled as the body of a function
// whose parameters are the capability bindings, so those names are the only
// non-builtin identifiers in scope:
//
//	(function (console, setTimeout, clearTimeout, setInterval, clearInterval) {
//		"use strict";
//		<program>
//	})
//
// If the program returns a promise, Run keeps driving timers and promise
// jobs until it and every deferred callback have settled, or until the
// deadline passes.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout is returned when pending work has not settled by the deadline.
var ErrTimeout = errors.New("Execution timed out")

// Names lists the capability bindings in the order the program's enclosing
// function receives them.
var Names = []string{"console", "setTimeout", "clearTimeout", "setInterval", "clearInterval"}

// Fault is an exception that escaped the program's top level, including
// a rejection of the promise it returned.
type Fault struct {
	Message string
}

func (f *Fault) Error() string {
	return f.Message
}

// Result holds the captured console lines of a run.
type Result struct {
	Lines    []string
	Duration time.Duration
	Error    error
}

// Config controls a run.
type Config struct {
	// Timeout bounds the whole run, synchronous code included. Zero means
	// the caller's context is the only bound.
	Timeout time.Duration

	// MaxCallStackSize limits JavaScript recursion depth. Zero keeps the
	// runtime default.
	MaxCallStackSize int
}

// DefaultConfig returns the configuration used by the playground.
func DefaultConfig() Config {
	return Config{
		Timeout:          2 * time.Second,
		MaxCallStackSize: 4096,
	}
}

// Runner returns the function expression program is compiled into.
func Runner(program string) string {
	var b strings.Builder
	b.WriteString("(function (")
	b.WriteString(strings.Join(Names, ", "))
	b.WriteString(") {\"use strict\";\n")
	b.WriteString(program)
	b.WriteString("\n})")
	return b.String()
}

// Run executes program and waits for its pending work to settle.
func Run(ctx context.Context, program string, cfg Config) Result {
	start := time.Now()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	s := newScope(ctx, cfg)
	err := s.run(program)

	return Result{
		Lines:    s.lines,
		Duration: time.Since(start),
		Error:    err,
	}
}

// ContextError maps a finished context to the run error: ErrTimeout for
// an expired deadline, a wrapped cancellation otherwise.
func ContextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("execution cancelled: %w", ctx.Err())
}
