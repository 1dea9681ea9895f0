package index

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// LineSet is an immutable set of line indices held in ascending order.
// The zero value is the empty set.
type LineSet struct {
	lines []int
}

// NewLineSet builds a set from arbitrary indices, dropping duplicates.
func NewLineSet(lines ...int) LineSet {
	if len(lines) == 0 {
		return LineSet{}
	}
	sorted := slices.Clone(lines)
	slices.Sort(sorted)
	return LineSet{lines: slices.Compact(sorted)}
}

func (s LineSet) Len() int { return len(s.lines) }

func (s LineSet) IsEmpty() bool { return len(s.lines) == 0 }

// Contains reports whether line is in the set.
func (s LineSet) Contains(line int) bool {
	_, found := slices.BinarySearch(s.lines, line)
	return found
}

// Lines returns a copy of the indices in ascending order.
func (s LineSet) Lines() []int {
	return slices.Clone(s.lines)
}

// All yields the indices in ascending order.
func (s LineSet) All() iter.Seq[int] {
	return slices.Values(s.lines)
}

// Min returns the smallest index, or -1 for the empty set.
func (s LineSet) Min() int {
	if len(s.lines) == 0 {
		return -1
	}
	return s.lines[0]
}

// Max returns the largest index, or -1 for the empty set.
func (s LineSet) Max() int {
	if len(s.lines) == 0 {
		return -1
	}
	return s.lines[len(s.lines)-1]
}

// Intersect returns the lines present in both sets.
func (s LineSet) Intersect(other LineSet) LineSet {
	a, b := s.lines, other.lines
	out := make([]int, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return LineSet{lines: out}
}

// Union returns the lines present in either set.
func (s LineSet) Union(other LineSet) LineSet {
	a, b := s.lines, other.lines
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return LineSet{lines: out}
}

// Complement returns every index in [0, n) that is not in the set.
func (s LineSet) Complement(n int) LineSet {
	if n <= 0 {
		return LineSet{}
	}
	out := make([]int, 0, max(n-len(s.lines), 0))
	next := 0
	for line := 0; line < n; line++ {
		if next < len(s.lines) && s.lines[next] == line {
			next++
			continue
		}
		out = append(out, line)
	}
	return LineSet{lines: out}
}

// Equal reports whether both sets hold the same indices.
func (s LineSet) Equal(other LineSet) bool {
	return slices.Equal(s.lines, other.lines)
}

func (s LineSet) String() string {
	parts := make([]string, len(s.lines))
	for i, line := range s.lines {
		parts[i] = strconv.Itoa(line)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
