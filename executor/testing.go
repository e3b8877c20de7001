package executor

import (
	"sync"

	"github.com/caffeineduck/tsplay/language/typescript"
)

// TestExecutor provides a shared executor for tests.
// Use GetTestExecutor() to get a shared instance that's reused across tests.
var (
	testExecutor     *Executor
	testExecutorOnce sync.Once
	testExecutorErr  error
)

// GetTestExecutor returns a shared goja executor with the TypeScript
// lowerer. The executor is created once and reused.
func GetTestExecutor() (*Executor, error) {
	testExecutorOnce.Do(func() {
		testExecutor, testExecutorErr = New(typescript.New(typescript.WithLineOffset(WrapLines)))
	})
	return testExecutor, testExecutorErr
}

// CloseTestExecutor closes the shared test executor.
func CloseTestExecutor() {
	if testExecutor != nil {
		testExecutor.Close()
		testExecutor = nil
		testExecutorOnce = sync.Once{} // Reset for next test run
	}
}
