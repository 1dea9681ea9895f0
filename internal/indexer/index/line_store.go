package index

import "slices"

// LineStore is the ordered, read-only text of a document. Line indices are
// 0-based positions into it.
type LineStore struct {
	lines []string
}

func (s *LineStore) Len() int { return len(s.lines) }

// Line returns the text at index i.
func (s *LineStore) Line(i int) (string, bool) {
	if i < 0 || i >= len(s.lines) {
		return "", false
	}
	return s.lines[i], true
}

// Lines returns a copy of every line in document order.
func (s *LineStore) Lines() []string {
	return slices.Clone(s.lines)
}
