package typescript

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/caffeineduck/tsplay/checker"
	"github.com/caffeineduck/tsplay/diagnostic"
)

func check(t *testing.T, src string) []diagnostic.Diagnostic {
	t.Helper()
	return checker.New(New()).Check(context.Background(), src).Errors
}

func TestTypeMismatch(t *testing.T) {
	errs := check(t, `let x: number = "hi";`)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
	d := errs[0]
	if d.Line != 1 || d.Column != 5 {
		t.Errorf("expected position 1:5, got %d:%d", d.Line, d.Column)
	}
	if d.Code != "2322" {
		t.Errorf("expected code 2322, got %q", d.Code)
	}
	if d.Message != "Type 'string' is not assignable to type 'number'." {
		t.Errorf("unexpected message %q", d.Message)
	}
}

func TestAnnotations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"matching number", `let a: number = 42;`, nil},
		{"matching string", `const s: string = 'ok'`, nil},
		{"matching template", "let s: string = `a ${1}`;", nil},
		{"boolean to string", `var flag: string = true;`, []string{"Type 'boolean' is not assignable to type 'string'."}},
		{"bigint to number", `let n: number = 10n;`, []string{"Type 'bigint' is not assignable to type 'number'."}},
		{"number to bigint", `let n: bigint = 10;`, []string{"Type 'number' is not assignable to type 'bigint'."}},
		{"negative float to boolean", `let b: boolean = -1.5e3;`, []string{"Type 'number' is not assignable to type 'boolean'."}},
		{"null assignable", `let a: number = null;`, nil},
		{"expression initializer", `let a: number = "1" + 2;`, nil},
		{"method on literal", `let a: number = "abc".length;`, nil},
		{"in comment", "// let a: number = \"x\";\nlet b = 1;", nil},
		{"in string", `const s = "let a: number = 'x';";`, nil},
		{"multiline", "let a = 1;\nlet b: string =\n  2;", []string{"Type 'number' is not assignable to type 'string'."}},
		{"in function", "function f() {\n  const c: number = false\n}", []string{"Type 'boolean' is not assignable to type 'number'."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := check(t, tt.src)
			if len(errs) != len(tt.want) {
				t.Fatalf("expected %d errors, got %+v", len(tt.want), errs)
			}
			for i, d := range errs {
				if d.Message != tt.want[i] {
					t.Errorf("error %d: got %q, want %q", i, d.Message, tt.want[i])
				}
			}
		})
	}
}

func TestMultilinePosition(t *testing.T) {
	errs := check(t, "let a = 1;\nlet b: string =\n  2;")
	if len(errs) != 1 || errs[0].Line != 2 || errs[0].Column != 5 {
		t.Errorf("expected error at 2:5, got %+v", errs)
	}
}

func TestSyntaxError(t *testing.T) {
	errs := check(t, "let a = 1;\nlet = ;")
	if len(errs) == 0 {
		t.Fatal("expected a syntax error")
	}
	for _, d := range errs {
		if d.Line != 2 {
			t.Errorf("expected syntax error on line 2, got %+v", d)
		}
	}
}

func TestPreludeGlobals(t *testing.T) {
	src := `console.log("a"); console.warn(1); setTimeout(() => {}, 10); clearTimeout(1);`
	if errs := check(t, src); len(errs) != 0 {
		t.Errorf("expected prelude globals to check cleanly, got %+v", errs)
	}
}

func TestTopLevelAwaitChecks(t *testing.T) {
	src := "const v = await new Promise<number>((r) => setTimeout(() => r(1), 0));\nconsole.log(v);"
	if errs := check(t, src); len(errs) != 0 {
		t.Errorf("expected top-level await to check cleanly, got %+v", errs)
	}
}

func TestUnterminatedSourceClamped(t *testing.T) {
	errs := check(t, "const s = `open")
	if len(errs) == 0 {
		t.Fatal("expected an error for the unterminated template")
	}
	for _, d := range errs {
		if d.Line != 1 {
			t.Errorf("expected error on line 1, got %+v", d)
		}
	}
}

func TestLower(t *testing.T) {
	ts := New()
	out, err := ts.Lower("interface P { x: number }\nconst p: P = { x: 1 };\nconsole.log(p.x as number);")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if strings.Contains(out, "interface") || strings.Contains(out, ": P") || strings.Contains(out, " as ") {
		t.Errorf("expected types to be stripped, got:\n%s", out)
	}
	if !strings.Contains(out, "console.log(p.x)") {
		t.Errorf("expected call to survive lowering, got:\n%s", out)
	}
}

func TestLowerError(t *testing.T) {
	_, err := New().Lower("let = ;")
	var le *LowerError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LowerError, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line in message, got %q", err.Error())
	}
}

func TestLowerErrorLineOffset(t *testing.T) {
	_, err := New(WithLineOffset(1)).Lower("return (async () => {\nlet a = 1;\nlet = ;\n})();")
	if err == nil || !strings.Contains(err.Error(), "line 2:") {
		t.Errorf("expected line counted from the unwrapped source, got %v", err)
	}
}

func TestLowerBigInt(t *testing.T) {
	out, err := New().Lower("let b: bigint = 10n;\nconsole.log(b * 2n);")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if !strings.Contains(out, "10n") {
		t.Errorf("expected bigint literal to survive lowering, got:\n%s", out)
	}
}

func TestMask(t *testing.T) {
	src := "a /* b */ \"c\\\"d\" // e\n`f\ng`"
	got := mask(src)
	if len(got) != len(src) {
		t.Fatalf("mask changed length: %d != %d", len(got), len(src))
	}
	want := "a         \"    \"     \n` \n `"
	if got != want {
		t.Errorf("mask(%q) = %q, want %q", src, got, want)
	}
}
