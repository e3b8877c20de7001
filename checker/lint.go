package checker

import (
	"strings"

	"github.com/caffeineduck/tsplay/diagnostic"
)

// AnyWarning is the advisory message for lines that mention `any`.
const AnyWarning = "Consider using a more specific type instead of 'any'"

// Lint flags every non-comment line containing the substring "any".
//
// This is plain text matching: identifiers such as `company` or string
// literals mentioning "any" are flagged as well. Results are warnings and
// never block execution.
func Lint(source string) []diagnostic.Diagnostic {
	warnings := make([]diagnostic.Diagnostic, 0)
	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
			continue
		}
		if strings.Contains(line, "any") {
			warnings = append(warnings, diagnostic.Diagnostic{
				Message: AnyWarning,
				Line:    i + 1,
			})
		}
	}
	return warnings
}
