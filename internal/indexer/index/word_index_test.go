package index

import (
	"fmt"
	"slices"
	"strings"
	"testing"
)

func TestBuild(t *testing.T) {
	store, idx := Build([]string{"a b", "b c", "a c", "a a a"})

	if store.Len() != 4 {
		t.Fatalf("store.Len() = %d, want 4", store.Len())
	}
	if idx.Store() != store {
		t.Fatal("index does not reference its store")
	}

	tests := []struct {
		term string
		want []int
	}{
		{"a", []int{0, 2, 3}},
		{"b", []int{0, 1}},
		{"c", []int{1, 2}},
		{"A", nil},
		{"", nil},
		{"missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := idx.Lookup(tt.term).Lines()
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Lookup(%q) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}

	if got, want := idx.Terms(), []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if idx.TokenCount() != 9 {
		t.Errorf("TokenCount() = %d, want 9", idx.TokenCount())
	}
}

func TestBuildCopiesInput(t *testing.T) {
	lines := []string{"one", "two"}
	store, _ := Build(lines)
	lines[0] = "changed"
	if got, _ := store.Line(0); got != "one" {
		t.Errorf("store.Line(0) = %q, input mutation leaked", got)
	}
}

func TestBuildEmptyDocument(t *testing.T) {
	store, idx := Build(nil)
	if store.Len() != 0 || idx.TermCount() != 0 {
		t.Fatalf("expected empty store and index, got %d lines %d terms", store.Len(), idx.TermCount())
	}
	if !idx.Lookup("anything").IsEmpty() {
		t.Error("lookup on empty index returned matches")
	}
}

func TestLookupUnaffectedByLaterLookups(t *testing.T) {
	_, idx := Build([]string{"x y", "y", "x"})
	first := idx.Lookup("x")
	_ = idx.Lookup("y").Union(idx.Lookup("x"))
	_ = idx.Lookup("missing")
	if got := first.Lines(); !slices.Equal(got, []int{0, 2}) {
		t.Errorf("earlier lookup changed to %v", got)
	}
}

func TestLineStoreBounds(t *testing.T) {
	store, _ := Build([]string{"only"})
	if _, ok := store.Line(-1); ok {
		t.Error("Line(-1) reported ok")
	}
	if _, ok := store.Line(1); ok {
		t.Error("Line(1) reported ok")
	}
	if got, ok := store.Line(0); !ok || got != "only" {
		t.Errorf("Line(0) = %q, %v", got, ok)
	}
}

func BenchmarkBuild(b *testing.B) {
	lines := make([]string, 10000)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d mentions search engine indexing query %d", i, i%97)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Build(lines)
	}
}

func BenchmarkLookup(b *testing.B) {
	lines := make([]string, 10000)
	for i := range lines {
		lines[i] = strings.Repeat("distributed search ", 4)
	}
	_, idx := Build(lines)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Lookup("search")
	}
}
