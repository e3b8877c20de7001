// Package checker statically analyzes TypeScript snippets.
//
// The user's source is composed with an ambient prelude declaring the
// sandbox globals and a trailing module marker, handed to an Analyzer,
// and every finding is mapped back onto the user's own lines. Findings
// that land inside the prelude are dropped.
package checker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/cache"
	"github.com/caffeineduck/tsplay/diagnostic"
)

// Analyzer performs static analysis over the composed text. Offsets in
// the returned findings are relative to that text. Malformed input
// produces findings; an error means the analysis itself could not run.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, text string) ([]diagnostic.Finding, error)
}

// Result holds the output of a check. Both slices are non-nil.
type Result struct {
	Errors   []diagnostic.Diagnostic `json:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings"`
}

// Checker runs an Analyzer and the lint pass over user snippets.
type Checker struct {
	analyzer Analyzer
	store    cache.Store
	ttl      time.Duration
	logger   *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithCache caches check results in store. A zero ttl uses the store's
// default.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Checker) {
		c.store = store
		c.ttl = ttl
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) {
		c.logger = l
	}
}

// New creates a Checker backed by analyzer.
func New(analyzer Analyzer, opts ...Option) *Checker {
	c := &Checker{
		analyzer: analyzer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyzer returns the analyzer this checker runs.
func (c *Checker) Analyzer() Analyzer {
	return c.analyzer
}

// Check returns the blocking errors and lint warnings for source. An
// analyzer that could not run is reported as a positionless error and the
// result is not cached.
func (c *Checker) Check(ctx context.Context, source string) Result {
	key := c.cacheKey(source)
	if res, ok := c.lookup(ctx, key); ok {
		return res
	}

	errs, err := c.diagnostics(ctx, source)
	res := Result{
		Errors:   errs,
		Warnings: Lint(source),
	}
	if err != nil || ctx.Err() != nil {
		return res
	}
	c.save(ctx, key, res)
	return res
}

// Diagnostics runs the analyzer and returns its findings positioned on
// the user's lines.
func (c *Checker) Diagnostics(ctx context.Context, source string) []diagnostic.Diagnostic {
	out, _ := c.diagnostics(ctx, source)
	return out
}

func (c *Checker) diagnostics(ctx context.Context, source string) ([]diagnostic.Diagnostic, error) {
	text := Compose(source)
	combined := diagnostic.NewLineMap(text)
	user := diagnostic.NewLineMap(source)
	lastLine := user.LineCount()

	found, err := c.analyzer.Analyze(ctx, text)
	if err != nil {
		c.logger.Warn("analyzer failed", zap.String("analyzer", c.analyzer.Name()), zap.Error(err))
		return []diagnostic.Diagnostic{{Message: err.Error()}}, err
	}

	out := make([]diagnostic.Diagnostic, 0)
	for _, f := range found {
		d := diagnostic.Diagnostic{Message: f.Message, Code: f.Code}
		if f.Start != diagnostic.NoPos {
			line, col := combined.Position(f.Start)
			line -= PreludeLines
			if line <= 0 {
				continue
			}
			// the module marker line: pin to the end of the user's text
			if line > lastLine {
				line, col = lastLine, user.LineEnd(lastLine)
			}
			d.Line, d.Column = line, col
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *Checker) cacheKey(source string) string {
	h := sha256.New()
	h.Write([]byte(c.analyzer.Name()))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Checker) lookup(ctx context.Context, key string) (Result, bool) {
	if c.store == nil {
		return Result{}, false
	}
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("check cache get failed", zap.Error(err))
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("check cache entry corrupt", zap.String("key", key), zap.Error(err))
		return Result{}, false
	}
	if res.Errors == nil {
		res.Errors = []diagnostic.Diagnostic{}
	}
	if res.Warnings == nil {
		res.Warnings = []diagnostic.Diagnostic{}
	}
	return res, true
}

func (c *Checker) save(ctx context.Context, key string, res Result) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("check cache encode failed", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("check cache set failed", zap.Error(err))
	}
}
