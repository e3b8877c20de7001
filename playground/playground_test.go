package playground

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caffeineduck/tsplay/checker"
	"github.com/caffeineduck/tsplay/diagnostic"
	"github.com/caffeineduck/tsplay/executor"
	"github.com/caffeineduck/tsplay/language/typescript"
	"github.com/caffeineduck/tsplay/sandbox"
)

// spyRunner counts calls and returns a canned result.
type spyRunner struct {
	calls  atomic.Int32
	result executor.Result
}

func (s *spyRunner) Run(context.Context, string, ...executor.Option) executor.Result {
	s.calls.Add(1)
	return s.result
}

type stubChecker struct {
	result checker.Result
}

func (c stubChecker) Check(context.Context, string) checker.Result {
	return c.result
}

func realService(t *testing.T) *Service {
	t.Helper()
	exec, err := executor.GetTestExecutor()
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	return New(checker.New(typescript.New()), exec)
}

func TestExecutionGatedOnErrors(t *testing.T) {
	spy := &spyRunner{result: executor.Result{Output: "ran"}}
	svc := New(stubChecker{checker.Result{
		Errors:   []diagnostic.Diagnostic{{Message: "bad", Line: 1, Column: 1}},
		Warnings: []diagnostic.Diagnostic{},
	}}, spy)

	res := svc.CheckAndRun(context.Background(), "whatever")
	if spy.calls.Load() != 0 {
		t.Fatalf("runner invoked %d times despite errors", spy.calls.Load())
	}
	if res.Success || res.Output != "" || len(res.Errors) != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestGatingWithRealChecker(t *testing.T) {
	spy := &spyRunner{}
	svc := New(checker.New(typescript.New()), spy)

	for _, src := range []string{`let x: number = "hi";`, "let = ;", "const a: boolean = 1;\nlet b = 2;"} {
		res := svc.CheckAndRun(context.Background(), src)
		if len(res.Errors) == 0 {
			t.Errorf("%q: expected errors", src)
		}
		if res.Output != "" {
			t.Errorf("%q: expected no output, got %q", src, res.Output)
		}
	}
	if spy.calls.Load() != 0 {
		t.Errorf("runner invoked %d times", spy.calls.Load())
	}
}

func TestWarningsDoNotBlock(t *testing.T) {
	spy := &spyRunner{result: executor.Result{Output: "ok", Lines: []string{"ok"}}}
	svc := New(stubChecker{checker.Result{
		Errors:   []diagnostic.Diagnostic{},
		Warnings: []diagnostic.Diagnostic{{Message: checker.AnyWarning, Line: 1}},
	}}, spy)

	res := svc.CheckAndRun(context.Background(), "let v: any = 1;")
	if spy.calls.Load() != 1 {
		t.Fatalf("expected one run, got %d", spy.calls.Load())
	}
	if !res.Success || res.Output != "ok" || len(res.Warnings) != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunErrorBecomesDiagnostic(t *testing.T) {
	spy := &spyRunner{result: executor.Result{Output: executor.NoOutput, Error: sandbox.ErrTimeout}}
	svc := New(stubChecker{checker.Result{Errors: []diagnostic.Diagnostic{}, Warnings: []diagnostic.Diagnostic{}}}, spy)

	res := svc.CheckAndRun(context.Background(), "while (true) {}")
	if res.Success {
		t.Error("expected failure")
	}
	if len(res.Errors) != 1 || res.Errors[0].Message != "Execution timed out" || res.Errors[0].Line != 0 {
		t.Errorf("expected a positionless timeout error, got %+v", res.Errors)
	}
	if res.Output != "" {
		t.Errorf("expected empty output on failure, got %q", res.Output)
	}
}

func TestScenarioTypeMismatch(t *testing.T) {
	res := realService(t).CheckAndRun(context.Background(), `let x: number = "hi";`)
	if res.Success || len(res.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %+v", res.Errors)
	}
	d := res.Errors[0]
	if d.Line != 1 || !strings.Contains(d.Message, "not assignable") {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if res.Output != "" {
		t.Errorf("expected no output, got %q", res.Output)
	}
}

func TestScenarioHello(t *testing.T) {
	res := realService(t).CheckAndRun(context.Background(), `console.log("hello"); console.log(1+1);`)
	if !res.Success || len(res.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", res.Errors)
	}
	if res.Output != "hello\n2" {
		t.Errorf("expected %q, got %q", "hello\n2", res.Output)
	}
}

func TestScenarioAnyWarning(t *testing.T) {
	src := "// any in a comment is ignored\nlet value: any = 5;\nconsole.log(value);"
	res := realService(t).CheckAndRun(context.Background(), src)
	if !res.Success || len(res.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Line != 2 {
		t.Errorf("expected one warning on line 2, got %+v", res.Warnings)
	}
	if res.Output != "5" {
		t.Errorf("expected output 5, got %q", res.Output)
	}
}

func TestScenarioNoOutput(t *testing.T) {
	res := realService(t).CheckAndRun(context.Background(), "const n: number = 3;")
	if !res.Success || res.Output != executor.NoOutput {
		t.Errorf("expected sentinel output, got %+v", res)
	}
}

func TestScenarioTimeout(t *testing.T) {
	start := time.Now()
	res := realService(t).CheckAndRun(context.Background(),
		`setTimeout(() => console.log("never"), 10000);`,
		executor.WithTimeout(250*time.Millisecond))

	if res.Success || len(res.Errors) != 1 || res.Errors[0].Message != sandbox.ErrTimeout.Error() {
		t.Fatalf("expected timeout error, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestScenarioOrdering(t *testing.T) {
	res := realService(t).CheckAndRun(context.Background(), `
console.log("A");
setTimeout(() => console.log("B"), 0);
console.log("C");
`)
	if res.Output != "A\nC\nB" {
		t.Errorf("expected A, C, B; got %q", res.Output)
	}
}

func TestScenarioBigInt(t *testing.T) {
	res := realService(t).CheckAndRun(context.Background(), `let b: bigint = 10n; console.log(b);`)
	if !res.Success || len(res.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", res.Errors)
	}
	if res.Output != "10" {
		t.Errorf("expected output 10, got %q", res.Output)
	}
}

func TestCheckOnly(t *testing.T) {
	spy := &spyRunner{}
	svc := New(checker.New(typescript.New()), spy)

	res := svc.Check(context.Background(), `let x: number = "hi";`)
	if len(res.Errors) != 1 {
		t.Errorf("expected one error, got %+v", res.Errors)
	}
	if spy.calls.Load() != 0 {
		t.Error("Check must never run code")
	}
}

func TestDiagnosticFormatting(t *testing.T) {
	res := realService(t).CheckAndRun(context.Background(), `let x: number = "hi";`)
	if len(res.Errors) == 0 {
		t.Fatal("expected an error")
	}
	got := diagnostic.Format(res.Errors[0])
	if !strings.HasPrefix(got, "Line 1, Column 5: ") {
		t.Errorf("unexpected rendering %q", got)
	}
}

func TestObserver(t *testing.T) {
	var events []Event
	observe := func(e Event) { events = append(events, e) }

	clean := stubChecker{checker.Result{Errors: []diagnostic.Diagnostic{}, Warnings: []diagnostic.Diagnostic{}}}
	dirty := stubChecker{checker.Result{Errors: []diagnostic.Diagnostic{{Message: "bad"}}, Warnings: []diagnostic.Diagnostic{}}}

	tests := []struct {
		name    string
		checker Checker
		run     executor.Result
		want    Outcome
	}{
		{"rejected", dirty, executor.Result{}, OutcomeRejected},
		{"succeeded", clean, executor.Result{Output: "x", Duration: time.Millisecond}, OutcomeSucceeded},
		{"timed out", clean, executor.Result{Error: sandbox.ErrTimeout}, OutcomeTimedOut},
		{"faulted", clean, executor.Result{Error: &sandbox.Fault{Message: "boom"}}, OutcomeFaulted},
		{"failed", clean, executor.Result{Error: executor.ErrClosed}, OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events = nil
			svc := New(tt.checker, &spyRunner{result: tt.run}, WithObserver(observe))
			svc.CheckAndRun(context.Background(), "x")
			if len(events) != 1 || events[0].Outcome != tt.want {
				t.Errorf("events = %+v, want outcome %s", events, tt.want)
			}
		})
	}
}
