package query

import (
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer/index"
)

// Query is a value handle on an expression tree. Copies share the same
// nodes, and composing never alters the operands.
type Query struct {
	root Expr
}

// New returns a query matching lines that contain term. Any string is
// accepted; one that is never indexed, such as "", simply matches nothing.
func New(term string) Query {
	return Query{root: &WordExpr{Term: term}}
}

func And(a, b Query) Query {
	return Query{root: &AndExpr{LHS: a.Expr(), RHS: b.Expr()}}
}

func Or(a, b Query) Query {
	return Query{root: &OrExpr{LHS: a.Expr(), RHS: b.Expr()}}
}

func Not(a Query) Query {
	return Query{root: &NotExpr{Inner: a.Expr()}}
}

func (q Query) And(other Query) Query { return And(q, other) }

func (q Query) Or(other Query) Query { return Or(q, other) }

func (q Query) Not() Query { return Not(q) }

// Expr returns the root node. The zero Query reads as the empty word.
func (q Query) Expr() Expr {
	if q.root == nil {
		return &WordExpr{}
	}
	return q.root
}

// Evaluate runs the query against idx and the store it was built from.
func (q Query) Evaluate(idx *index.WordIndex, store *index.LineStore) (*Result, error) {
	return Evaluate(q.Expr(), idx, store)
}

// String returns the canonical representation.
func (q Query) String() string {
	return Repr(q.Expr())
}

// Terms lists the distinct words the query mentions.
func (q Query) Terms() []string {
	return Terms(q.Expr())
}
