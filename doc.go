// Package tsplay type-checks TypeScript snippets and runs the ones that
// pass inside a sandbox that exposes only console and timers.
//
// # Overview
//
// A snippet goes through two stages. The [checker] reports errors and
// advisory warnings; errors block execution. The [executor] then lowers
// the snippet to plain JavaScript and runs it on an isolated engine until
// every timer and promise has settled or the timeout fires.
//
// # Basic Usage
//
//	ts := typescript.New()
//	exec, _ := executor.New(ts)
//	defer exec.Close()
//
//	svc := playground.New(checker.New(ts), exec)
//	res := svc.CheckAndRun(ctx, `console.log("hello")`)
//	fmt.Println(res.Output) // hello
//
// # Caching Diagnostics
//
//	chk := checker.New(ts, checker.WithCache(cache.NewLRU(1024, time.Hour), 0))
//
// # Engines
//
//	// QuickJS under wazero, with a memory limit
//	exec, _ := executor.New(ts,
//	    executor.WithEngine(executor.EngineQuickJS),
//	    executor.WithMemoryLimit(executor.MemoryLimit64MB))
//
// See the [playground], [checker], [executor], [sandbox] and
// [language/typescript] packages for detailed API documentation, and
// cmd/tsplay for the CLI and HTTP server.
package tsplay
