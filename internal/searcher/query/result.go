package query

import (
	"fmt"
	"iter"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/textquery/pkg/errors"
)

// Result is the outcome of evaluating one expression: its canonical text,
// the matching line indices, and the LineStore they index into. Every line
// index is below Store().Len().
type Result struct {
	sought string
	lines  index.LineSet
	store  *index.LineStore
}

// NewResult rebuilds a Result from stored parts, rejecting line indices
// that fall outside store.
func NewResult(sought string, lines index.LineSet, store *index.LineStore) (*Result, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil line store", apperrors.ErrStoreMismatch)
	}
	if lines.Max() >= store.Len() || (lines.Len() > 0 && lines.Min() < 0) {
		return nil, fmt.Errorf("%w: max line %d, store has %d lines",
			apperrors.ErrLineOutOfRange, lines.Max(), store.Len())
	}
	return &Result{sought: sought, lines: lines, store: store}, nil
}

// Sought is the canonical text of the expression that produced r.
func (r *Result) Sought() string { return r.sought }

func (r *Result) Lines() index.LineSet { return r.lines }

// LineNumbers returns the matching 0-based line indices in ascending order.
func (r *Result) LineNumbers() []int { return r.lines.Lines() }

func (r *Result) Len() int { return r.lines.Len() }

func (r *Result) Store() *index.LineStore { return r.store }

// Line returns the text of line i of the underlying store.
func (r *Result) Line(i int) (string, bool) { return r.store.Line(i) }

// All yields each matching line index with its text, in ascending order.
func (r *Result) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i := range r.lines.All() {
			text, _ := r.store.Line(i)
			if !yield(i, text) {
				return
			}
		}
	}
}

func (r *Result) String() string {
	return fmt.Sprintf("%s %v", r.sought, r.lines)
}

// sameStore fails when two sub-results were evaluated against different
// documents.
func sameStore(left, right *Result) error {
	if left.store != right.store {
		return fmt.Errorf("%w: %q and %q were evaluated against different documents",
			apperrors.ErrStoreMismatch, left.sought, right.sought)
	}
	return nil
}
