// Package parser reads query expressions written in the canonical text form
// produced by query.Repr.
//
// Terms are runs of non-space characters other than & | ~ ( ) and ". A term
// that contains any of those, or is empty, is written as a double-quoted Go
// string literal: "f(x)", "a&b", "". "~" binds tightest, then "&", then "|";
// both binary operators associate to the left and parentheses group.
// Redundant parentheses are accepted.
//
// Parse(Format(q)) rebuilds q for every tree. Parse(q.String()) does the
// same whenever no term of q needs quoting.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/textquery/pkg/errors"
)

// operatorChars may not appear in an unquoted term.
const operatorChars = `&|~()"`

var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Quoted", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Term", Pattern: `[^\s&|~()"]+`},
	{Name: "Operator", Pattern: `[&|~()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type orNode struct {
	Head *andNode   `@@`
	Tail []*andNode `( "|" @@ )*`
}

type andNode struct {
	Head *unaryNode   `@@`
	Tail []*unaryNode `( "&" @@ )*`
}

type unaryNode struct {
	Negated *unaryNode   `  "~" @@`
	Primary *primaryNode `| @@`
}

type primaryNode struct {
	Term  *string `  @(Term | Quoted)`
	Group *orNode `| "(" @@ ")"`
}

var queryParser = participle.MustBuild[orNode](
	participle.Lexer(queryLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("Quoted"),
)

// Parse builds a Query from its text form. Blank input and syntax errors
// fail with ErrInvalidQuery.
func Parse(text string) (query.Query, error) {
	if strings.TrimSpace(text) == "" {
		return query.Query{}, fmt.Errorf("%w: empty expression", apperrors.ErrInvalidQuery)
	}
	ast, err := queryParser.ParseString("", text)
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidQuery, err)
	}
	return ast.build(), nil
}

// Format writes q in the form Parse reads back. It matches q.String()
// except that terms which would not survive lexing are quoted.
func Format(q query.Query) string {
	return query.Render(q.Expr(), quoteTerm)
}

func quoteTerm(term string) string {
	if term == "" ||
		strings.ContainsAny(term, operatorChars) ||
		strings.IndexFunc(term, unicode.IsSpace) >= 0 ||
		!utf8.ValidString(term) {
		return strconv.Quote(term)
	}
	return term
}

func (n *orNode) build() query.Query {
	q := n.Head.build()
	for _, rhs := range n.Tail {
		q = q.Or(rhs.build())
	}
	return q
}

func (n *andNode) build() query.Query {
	q := n.Head.build()
	for _, rhs := range n.Tail {
		q = q.And(rhs.build())
	}
	return q
}

func (n *unaryNode) build() query.Query {
	if n.Negated != nil {
		return n.Negated.build().Not()
	}
	return n.Primary.build()
}

func (n *primaryNode) build() query.Query {
	if n.Term != nil {
		return query.New(*n.Term)
	}
	return n.Group.build()
}
