package typescript

import (
	"fmt"
	"regexp"

	"github.com/caffeineduck/tsplay/diagnostic"
)

// codeNotAssignable mirrors the TypeScript compiler's diagnostic code for
// "Type 'X' is not assignable to type 'Y'".
const codeNotAssignable = "2322"

var (
	annotatedDecl = regexp.MustCompile(`\b(?:let|const|var)\s+([A-Za-z_$][\w$]*)\s*:\s*(number|string|boolean|bigint)\s*=\s*`)
	numericLit    = regexp.MustCompile(`^-?(?:0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO][0-7_]+|\d[\d_]*(?:\.\d*)?(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)(n)?`)
)

// checkAnnotations finds `let|const|var name: T = <literal>` declarations
// where the literal's primitive type differs from T. Only a literal that
// forms the whole initializer is considered; anything else is left alone.
// null and undefined are assignable to every primitive in non-strict mode.
func checkAnnotations(text string) []diagnostic.Finding {
	masked := mask(text)
	var out []diagnostic.Finding
	for _, m := range annotatedDecl.FindAllStringSubmatchIndex(masked, -1) {
		nameStart := m[2]
		declared := masked[m[4]:m[5]]
		actual, end := literalType(masked, m[1])
		if actual == "" || actual == declared || !terminated(masked, end) {
			continue
		}
		out = append(out, diagnostic.Finding{
			Start:   nameStart,
			Message: fmt.Sprintf("Type '%s' is not assignable to type '%s'.", actual, declared),
			Code:    codeNotAssignable,
		})
	}
	return out
}

// literalType classifies the literal starting at pos and returns its type
// and end offset, or "" when pos does not start a primitive literal.
func literalType(s string, pos int) (string, int) {
	if pos >= len(s) {
		return "", pos
	}
	rest := s[pos:]
	switch rest[0] {
	case '"', '\'', '`':
		for i := 1; i < len(rest); i++ {
			if rest[i] == rest[0] {
				return "string", pos + i + 1
			}
		}
		return "", pos
	}
	for _, kw := range []string{"true", "false"} {
		if len(rest) >= len(kw) && rest[:len(kw)] == kw && !identByte(rest, len(kw)) {
			return "boolean", pos + len(kw)
		}
	}
	if loc := numericLit.FindStringSubmatchIndex(rest); loc != nil && !identByte(rest, loc[1]) {
		if loc[2] >= 0 {
			return "bigint", pos + loc[1]
		}
		return "number", pos + loc[1]
	}
	return "", pos
}

// terminated reports whether the initializer ends at pos: only spaces
// before a statement or list terminator.
func terminated(s string, pos int) bool {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	if pos == len(s) {
		return true
	}
	switch s[pos] {
	case ';', ',', '\n', '\r', ')', '}':
		return true
	}
	return false
}

func identByte(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || c == '$' || c == '.' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// mask blanks comments and the interiors of string and template literals
// with spaces, keeping delimiters, newlines and byte offsets intact, so
// that the declaration scan never matches inside them.
func mask(text string) string {
	b := []byte(text)
	blank := func(i int) {
		if b[i] != '\n' && b[i] != '\r' {
			b[i] = ' '
		}
	}
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			for ; i < len(b) && b[i] != '\n'; i++ {
				blank(i)
			}
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			start := i
			i += 2
			for i < len(b) && !(b[i] == '*' && i+1 < len(b) && b[i+1] == '/') {
				i++
			}
			end := i + 2
			if end > len(b) {
				end = len(b)
			}
			for k := start; k < end; k++ {
				blank(k)
			}
			i = end - 1
		case b[i] == '"' || b[i] == '\'' || b[i] == '`':
			quote := b[i]
			i++
			for i < len(b) && b[i] != quote {
				if quote != '`' && b[i] == '\n' {
					break
				}
				if b[i] == '\\' && i+1 < len(b) {
					blank(i)
					i++
				}
				blank(i)
				i++
			}
		}
	}
	return string(b)
}
