// Package tsc runs the TypeScript compiler as an external type checker.
//
// It is slower than the in-process analyzer and needs Node.js and tsc on
// the host, but it reports the full set of TypeScript diagnostics.
package tsc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caffeineduck/tsplay/diagnostic"
)

const (
	sourcefile     = "snippet.ts"
	defaultTimeout = 30 * time.Second
)

// compilerFlags mirror the browser playground's compiler options.
var compilerFlags = []string{
	"--noEmit",
	"--pretty", "false",
	"--target", "ES2020",
	"--module", "ESNext",
	"--esModuleInterop",
	"--lib", "es2020",
	"--skipLibCheck",
}

// TSC implements checker.Analyzer by shelling out to tsc.
type TSC struct {
	command []string
	timeout time.Duration
}

// Option configures a TSC analyzer.
type Option func(*TSC)

// WithCommand sets the compiler command, e.g. WithCommand("npx", "tsc").
// Defaults to "tsc".
func WithCommand(name string, args ...string) Option {
	return func(t *TSC) {
		t.command = append([]string{name}, args...)
	}
}

// WithTimeout bounds a single compiler invocation.
func WithTimeout(d time.Duration) Option {
	return func(t *TSC) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// New returns a TSC analyzer.
func New(opts ...Option) *TSC {
	t := &TSC{command: []string{"tsc"}, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns "tsc".
func (t *TSC) Name() string {
	return "tsc"
}

// Available reports whether the compiler command can be found.
func (t *TSC) Available() error {
	if _, err := exec.LookPath(t.command[0]); err != nil {
		return fmt.Errorf("typescript compiler not found: %w", err)
	}
	return nil
}

// Analyze type-checks text. It fails when the compiler cannot be run,
// times out, or ctx is cancelled.
func (t *TSC) Analyze(ctx context.Context, text string) ([]diagnostic.Finding, error) {
	output, err := t.compile(ctx, text)
	if err != nil {
		return nil, err
	}
	return Parse(output, text), nil
}

func (t *TSC) compile(ctx context.Context, text string) (string, error) {
	dir, err := os.MkdirTemp("", "tsplay-tsc-")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, sourcefile), []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write snippet: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := append(append(append([]string{}, t.command[1:]...), compilerFlags...), sourcefile)
	cmd := exec.CommandContext(runCtx, t.command[0], args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	switch {
	case ctx.Err() != nil:
		return "", fmt.Errorf("type check cancelled: %w", ctx.Err())
	case runCtx.Err() != nil:
		return "", fmt.Errorf("type check timed out after %v", t.timeout)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", fmt.Errorf("typescript compiler unavailable: %w", err)
	}
	// tsc exits non-zero whenever it reports diagnostics.
	return out.String(), nil
}

var diagLine = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (error|warning) TS(\d+): (.*)$`)
var globalLine = regexp.MustCompile(`^(error|warning) TS(\d+): (.*)$`)

// Parse converts `--pretty false` compiler output into findings. Indented
// continuation lines are appended to the preceding message.
func Parse(output, text string) []diagnostic.Finding {
	m := diagnostic.NewLineMap(text)
	var findings []diagnostic.Finding

	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if match := diagLine.FindStringSubmatch(line); match != nil {
			ln, _ := strconv.Atoi(match[2])
			col, _ := strconv.Atoi(match[3])
			findings = append(findings, diagnostic.Finding{
				Start:   m.OffsetUTF16(ln, col),
				Code:    match[5],
				Message: match[6],
			})
			continue
		}
		if match := globalLine.FindStringSubmatch(line); match != nil {
			findings = append(findings, diagnostic.Positionless(match[2], match[3]))
			continue
		}
		if strings.HasPrefix(line, " ") && len(findings) > 0 {
			last := &findings[len(findings)-1]
			last.Message += "\n" + strings.TrimSpace(line)
		}
	}
	return findings
}
