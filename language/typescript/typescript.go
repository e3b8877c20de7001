// Package typescript analyzes and lowers TypeScript in-process with esbuild.
//
// esbuild parses TypeScript fully but does not type-check, so Analyze
// combines its syntax diagnostics with a small annotation checker that
// catches the most common beginner mistake: a primitive type annotation
// whose literal initializer has a different primitive type.
package typescript

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/caffeineduck/tsplay/diagnostic"
)

const sourcefile = "snippet.ts"

// TypeScript implements checker.Analyzer and executor.Lowerer.
type TypeScript struct {
	target     api.Target
	lineOffset int
}

// Option configures a TypeScript adapter.
type Option func(*TypeScript)

// WithTarget sets the language level Lower emits. Defaults to ES2020,
// the level the analyzers check against.
func WithTarget(target api.Target) Option {
	return func(t *TypeScript) {
		t.target = target
	}
}

// WithLineOffset sets how many lines the caller prepends before handing
// source to Lower, so LowerError lines match the caller's source.
func WithLineOffset(n int) Option {
	return func(t *TypeScript) {
		t.lineOffset = n
	}
}

// New returns a TypeScript adapter.
func New(opts ...Option) *TypeScript {
	t := &TypeScript{target: api.ES2020}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns "typescript".
func (t *TypeScript) Name() string {
	return "typescript"
}

// Analyze reports syntax errors and, when the text parses, annotation
// mismatches. It never fails.
func (t *TypeScript) Analyze(_ context.Context, text string) ([]diagnostic.Finding, error) {
	res := api.Transform(text, api.TransformOptions{
		Loader:     api.LoaderTS,
		Sourcefile: sourcefile,
		LogLevel:   api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return findings(text, res.Errors), nil
	}
	return checkAnnotations(text), nil
}

// Lower strips types from source and down-compiles it to the configured
// target without any type checking.
func (t *TypeScript) Lower(source string) (string, error) {
	res := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderTS,
		Target:     t.target,
		Sourcefile: sourcefile,
		LogLevel:   api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return "", &LowerError{Messages: res.Errors, LineOffset: t.lineOffset}
	}
	return string(res.Code), nil
}

// LowerError is returned when esbuild rejects the source it was asked to
// lower. LineOffset is subtracted from reported lines so they count from
// the caller's own first line.
type LowerError struct {
	Messages   []api.Message
	LineOffset int
}

func (e *LowerError) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		if m.Location != nil {
			line := m.Location.Line - e.LineOffset
			if line < 1 {
				line = 1
			}
			parts = append(parts, fmt.Sprintf("line %d: %s", line, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}

func findings(text string, msgs []api.Message) []diagnostic.Finding {
	lines := diagnostic.NewLineMap(text)
	out := make([]diagnostic.Finding, 0, len(msgs))
	for _, m := range msgs {
		if m.Location == nil {
			out = append(out, diagnostic.Positionless("", m.Text))
			continue
		}
		out = append(out, diagnostic.Finding{
			Start:   lines.Offset(m.Location.Line, m.Location.Column),
			Message: m.Text,
		})
	}
	return out
}
