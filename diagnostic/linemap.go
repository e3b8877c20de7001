package diagnostic

import (
	"sort"
	"unicode/utf8"
)

// LineMap resolves byte offsets in a text to 1-based line/column pairs.
// Columns count UTF-16 code units so they line up with editor positions.
type LineMap struct {
	text   string
	starts []int
}

// NewLineMap indexes the line starts of text.
func NewLineMap(text string) *LineMap {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineMap{text: text, starts: starts}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (m *LineMap) LineCount() int {
	return len(m.starts)
}

// Position converts a byte offset to a 1-based line and column.
// Offsets outside the text are clamped.
func (m *LineMap) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(m.text) {
		offset = len(m.text)
	}

	idx := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > offset }) - 1

	u16 := 0
	for k := m.starts[idx]; k < offset; {
		r, sz := utf8.DecodeRuneInString(m.text[k:])
		if r == '\r' {
			k += sz
			continue
		}
		u16 += utf16Len(r)
		k += sz
	}
	return idx + 1, u16 + 1
}

// Offset converts a 1-based line and a 0-based byte column into a byte
// offset. The column is clamped to the end of the line.
func (m *LineMap) Offset(line, byteColumn int) int {
	if line < 1 {
		return 0
	}
	if line > len(m.starts) {
		return len(m.text)
	}
	start := m.starts[line-1]
	end := len(m.text)
	if line < len(m.starts) {
		end = m.starts[line] - 1
	}
	if byteColumn < 0 {
		byteColumn = 0
	}
	if start+byteColumn > end {
		return end
	}
	return start + byteColumn
}

// LineEnd returns the 1-based column just past the last character of line.
func (m *LineMap) LineEnd(line int) int {
	if line < 1 || line > len(m.starts) {
		return 1
	}
	end := len(m.text)
	if line < len(m.starts) {
		end = m.starts[line] - 1
	}
	_, col := m.Position(end)
	return col
}

func utf16Len(r rune) int {
	if r < 0x10000 {
		return 1
	}
	return 2
}

// OffsetUTF16 converts a 1-based line and 1-based UTF-16 column, as
// reported by editors and tsc, into a byte offset. The column is clamped
// to the end of the line.
func (m *LineMap) OffsetUTF16(line, column int) int {
	start := m.Offset(line, 0)
	end := m.Offset(line, len(m.text))
	u16 := 1
	k := start
	for k < end && u16 < column {
		r, sz := utf8.DecodeRuneInString(m.text[k:])
		u16 += utf16Len(r)
		k += sz
	}
	return k
}
