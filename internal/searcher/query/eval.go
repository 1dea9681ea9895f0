package query

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/textquery/pkg/errors"
)

// Evaluate runs e against idx and store. idx must have been built from
// store; anything else fails with ErrStoreMismatch. Evaluation has no side
// effects, so the same tree may be evaluated against many documents.
func Evaluate(e Expr, idx *index.WordIndex, store *index.LineStore) (*Result, error) {
	if idx == nil || store == nil {
		return nil, fmt.Errorf("%w: nil index or line store", apperrors.ErrStoreMismatch)
	}
	if idx.Store() != store {
		return nil, fmt.Errorf("%w: index was built from a different document", apperrors.ErrStoreMismatch)
	}
	return eval(e, idx, store)
}

func eval(e Expr, idx *index.WordIndex, store *index.LineStore) (*Result, error) {
	switch n := e.(type) {
	case *WordExpr:
		return &Result{sought: n.Term, lines: idx.Lookup(n.Term), store: store}, nil

	case *AndExpr:
		left, right, err := evalPair(n.LHS, n.RHS, idx, store)
		if err != nil {
			return nil, err
		}
		return &Result{
			sought: "(" + left.sought + " & " + right.sought + ")",
			lines:  left.lines.Intersect(right.lines),
			store:  left.store,
		}, nil

	case *OrExpr:
		left, right, err := evalPair(n.LHS, n.RHS, idx, store)
		if err != nil {
			return nil, err
		}
		return &Result{
			sought: "(" + left.sought + " | " + right.sought + ")",
			lines:  left.lines.Union(right.lines),
			store:  left.store,
		}, nil

	case *NotExpr:
		inner, err := eval(n.Inner, idx, store)
		if err != nil {
			return nil, err
		}
		return &Result{
			sought: "~(" + inner.sought + ")",
			lines:  inner.lines.Complement(inner.store.Len()),
			store:  inner.store,
		}, nil

	default:
		panic(fmt.Sprintf("query: unknown expression %T", e))
	}
}

func evalPair(lhs, rhs Expr, idx *index.WordIndex, store *index.LineStore) (*Result, *Result, error) {
	left, err := eval(lhs, idx, store)
	if err != nil {
		return nil, nil, err
	}
	right, err := eval(rhs, idx, store)
	if err != nil {
		return nil, nil, err
	}
	if err := sameStore(left, right); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}
