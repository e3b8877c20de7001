package checker

import "strings"

// Prelude declares the globals the sandbox provides so that user code
// referencing them type-checks without a full standard library. It is
// only ever analyzed, never executed.
const Prelude = `declare const console: {
  log: (...args: unknown[]) => void;
  info: (...args: unknown[]) => void;
  warn: (...args: unknown[]) => void;
  error: (...args: unknown[]) => void;
};
declare function setTimeout(handler: (...args: unknown[]) => void, timeout?: number, ...args: unknown[]): number;
declare function clearTimeout(handle?: number): void;
declare function setInterval(handler: (...args: unknown[]) => void, timeout?: number, ...args: unknown[]): number;
declare function clearInterval(handle?: number): void;`

// ModuleMarker is appended after user code so the snippet is analyzed as
// a module and its declarations stay out of the global scope.
const ModuleMarker = "export {};"

// PreludeLines is the number of lines Compose places before user code.
var PreludeLines = strings.Count(Prelude, "\n") + 1

// Compose returns the text handed to the analyzer: prelude, user source
// starting on line PreludeLines+1, then the module marker.
func Compose(source string) string {
	var b strings.Builder
	b.Grow(len(Prelude) + len(source) + len(ModuleMarker) + 2)
	b.WriteString(Prelude)
	b.WriteByte('\n')
	b.WriteString(source)
	b.WriteByte('\n')
	b.WriteString(ModuleMarker)
	return b.String()
}
