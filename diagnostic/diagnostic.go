// Package diagnostic defines the positioned issues reported by the checker
// and the executor, and the line map used to resolve analyzer offsets.
package diagnostic

import "fmt"

// NoPos marks a Finding that carries no source offset.
const NoPos = -1

// Diagnostic is a single reported issue. Line and Column are 1-based;
// zero means the position is unknown.
type Diagnostic struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Code    string `json:"code,omitempty"`
}

// String renders the diagnostic with Format.
func (d Diagnostic) String() string {
	return Format(d)
}

// Format renders a diagnostic for humans:
//
//	Line 3, Column 7: message
//	Line 3: message
//	message
func Format(d Diagnostic) string {
	switch {
	case d.Line > 0 && d.Column > 0:
		return fmt.Sprintf("Line %d, Column %d: %s", d.Line, d.Column, d.Message)
	case d.Line > 0:
		return fmt.Sprintf("Line %d: %s", d.Line, d.Message)
	default:
		return d.Message
	}
}

// Finding is what an analyzer reports: a message positioned by absolute
// byte offset into the text it analyzed. Start is NoPos when the analyzer
// could not place the finding.
type Finding struct {
	Start   int
	Message string
	Code    string
}

// Positionless returns a Finding without a source offset.
func Positionless(code, message string) Finding {
	return Finding{Start: NoPos, Message: message, Code: code}
}
