// Package executor lowers TypeScript snippets and runs them in an
// isolated JavaScript engine with a mock console and timers.
//
// # Overview
//
// Run wraps the source in an async closure so top-level await works,
// lowers it through a [Lowerer] without type checking, and executes the
// result on an [Engine]. The run ends when every pending timer and
// promise has settled, or fails with [sandbox.ErrTimeout] when the
// deadline passes first.
//
// # Basic Usage
//
//	exec, err := executor.New(typescript.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	result := exec.Run(ctx, `console.log("hello")`)
//	fmt.Println(result.Output)
//
// # Engines
//
// The default engine is goja, running in-process with a fresh runtime per
// run. The quickjs engine runs the QuickJS WASI module under wazero and
// accepts a memory limit and a disk compilation cache:
//
//	exec, err := executor.New(typescript.New(),
//	    executor.WithEngine(executor.EngineQuickJS),
//	    executor.WithMemoryLimit(executor.MemoryLimit64MB),
//	    executor.WithDiskCache(),
//	)
//
// Both engines expose exactly console, setTimeout, clearTimeout,
// setInterval and clearInterval to user code. Nothing persists between
// runs.
package executor
