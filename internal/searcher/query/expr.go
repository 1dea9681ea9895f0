// Package query implements boolean queries over a document's word index.
//
// A query is an immutable expression tree of words combined with AND, OR and
// NOT. Trees are built independently of any document and evaluated later
// against a WordIndex and the LineStore it was built from, producing a Result
// that names the expression and lists the matching lines. Sub-expressions are
// shared by reference, so one Query can be composed into many larger ones
// without copying.
package query

import (
	"fmt"
	"strings"
)

// Expr is a node of a query expression tree. The set of variants is closed:
// WordExpr, AndExpr, OrExpr and NotExpr.
type Expr interface {
	fmt.Stringer
	expr()
}

// WordExpr matches lines containing Term.
type WordExpr struct {
	Term string
}

// AndExpr matches lines matched by both LHS and RHS.
type AndExpr struct {
	LHS, RHS Expr
}

// OrExpr matches lines matched by either LHS or RHS.
type OrExpr struct {
	LHS, RHS Expr
}

// NotExpr matches every line Inner does not.
type NotExpr struct {
	Inner Expr
}

func (*WordExpr) expr() {}
func (*AndExpr) expr()  {}
func (*OrExpr) expr()   {}
func (*NotExpr) expr()  {}

func (e *WordExpr) String() string { return Repr(e) }
func (e *AndExpr) String() string  { return Repr(e) }
func (e *OrExpr) String() string   { return Repr(e) }
func (e *NotExpr) String() string  { return Repr(e) }

// Repr renders e in canonical, fully parenthesized form:
// words verbatim, "(l & r)", "(l | r)" and "~(x)".
func Repr(e Expr) string {
	return Render(e, nil)
}

// Render is Repr with each word passed through word first. A nil word
// writes words verbatim.
func Render(e Expr, word func(string) string) string {
	var b strings.Builder
	writeRepr(&b, e, word)
	return b.String()
}

func writeRepr(b *strings.Builder, e Expr, word func(string) string) {
	switch n := e.(type) {
	case *WordExpr:
		if word == nil {
			b.WriteString(n.Term)
		} else {
			b.WriteString(word(n.Term))
		}
	case *AndExpr:
		writeBinary(b, n.LHS, " & ", n.RHS, word)
	case *OrExpr:
		writeBinary(b, n.LHS, " | ", n.RHS, word)
	case *NotExpr:
		b.WriteString("~(")
		writeRepr(b, n.Inner, word)
		b.WriteByte(')')
	default:
		panic(fmt.Sprintf("query: unknown expression %T", e))
	}
}

func writeBinary(b *strings.Builder, lhs Expr, op string, rhs Expr, word func(string) string) {
	b.WriteByte('(')
	writeRepr(b, lhs, word)
	b.WriteString(op)
	writeRepr(b, rhs, word)
	b.WriteByte(')')
}

// Terms returns the distinct words referenced by e in first-seen order.
func Terms(e Expr) []string {
	seen := make(map[string]struct{})
	var terms []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *WordExpr:
			if _, ok := seen[n.Term]; !ok {
				seen[n.Term] = struct{}{}
				terms = append(terms, n.Term)
			}
		case *AndExpr:
			walk(n.LHS)
			walk(n.RHS)
		case *OrExpr:
			walk(n.LHS)
			walk(n.RHS)
		case *NotExpr:
			walk(n.Inner)
		default:
			panic(fmt.Sprintf("query: unknown expression %T", e))
		}
	}
	walk(e)
	return terms
}

// Depth is the number of nodes on the longest root-to-leaf path.
func Depth(e Expr) int {
	switch n := e.(type) {
	case *WordExpr:
		return 1
	case *AndExpr:
		return 1 + max(Depth(n.LHS), Depth(n.RHS))
	case *OrExpr:
		return 1 + max(Depth(n.LHS), Depth(n.RHS))
	case *NotExpr:
		return 1 + Depth(n.Inner)
	default:
		panic(fmt.Sprintf("query: unknown expression %T", e))
	}
}
