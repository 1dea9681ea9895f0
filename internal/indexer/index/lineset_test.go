package index

import (
	"slices"
	"testing"
)

func TestNewLineSetSortsAndDedupes(t *testing.T) {
	s := NewLineSet(4, 1, 4, 0, 1)
	if got, want := s.Lines(), []int{0, 1, 4}; !slices.Equal(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
	if !s.Contains(4) || s.Contains(2) {
		t.Errorf("Contains mismatch for %v", s)
	}
	if s.Max() != 4 {
		t.Errorf("Max() = %d, want 4", s.Max())
	}
}

func TestLineSetZeroValue(t *testing.T) {
	var s LineSet
	if !s.IsEmpty() || s.Len() != 0 || s.Max() != -1 {
		t.Errorf("zero LineSet not empty: %v", s)
	}
	if got := s.String(); got != "{}" {
		t.Errorf("String() = %q", got)
	}
}

func TestLineSetAlgebra(t *testing.T) {
	a := NewLineSet(0, 2, 4, 6)
	b := NewLineSet(1, 2, 3, 6, 9)

	tests := []struct {
		name string
		got  LineSet
		want []int
	}{
		{"intersect", a.Intersect(b), []int{2, 6}},
		{"intersect empty", a.Intersect(LineSet{}), nil},
		{"union", a.Union(b), []int{0, 1, 2, 3, 4, 6, 9}},
		{"union empty", LineSet{}.Union(b), []int{1, 2, 3, 6, 9}},
		{"complement", a.Complement(8), []int{1, 3, 5, 7}},
		{"complement of empty", LineSet{}.Complement(3), []int{0, 1, 2}},
		{"complement zero universe", a.Complement(0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.Lines(); !slices.Equal(got, tt.want) && !(len(got) == 0 && len(tt.want) == 0) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineSetLinesIsCopy(t *testing.T) {
	s := NewLineSet(1, 2, 3)
	lines := s.Lines()
	lines[0] = 99
	if s.Contains(99) {
		t.Fatal("mutating Lines() result changed the set")
	}
}

func TestLineSetAll(t *testing.T) {
	var got []int
	for line := range NewLineSet(5, 3, 1).All() {
		got = append(got, line)
	}
	if want := []int{1, 3, 5}; !slices.Equal(got, want) {
		t.Errorf("All() yielded %v, want %v", got, want)
	}
}
