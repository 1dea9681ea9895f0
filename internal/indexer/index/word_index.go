// Package index holds the in-memory structures a document is queried
// through: the LineStore with its text, the WordIndex mapping each word to
// the lines it occurs on, and the LineSet match sets both produce.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer/tokenizer"
)

// WordIndex maps each distinct word of a document to the lines containing it.
// Words compare by exact string equality.
type WordIndex struct {
	words  map[string]LineSet
	store  *LineStore
	tokens int
}

// Build copies lines into a new LineStore and indexes it in a single pass.
func Build(lines []string) (*LineStore, *WordIndex) {
	store := &LineStore{lines: append([]string(nil), lines...)}
	postings := make(map[string][]int)
	tokens := 0
	for i, line := range store.lines {
		for _, token := range tokenizer.Tokenize(line) {
			tokens++
			seen := postings[token.Term]
			// Lines arrive in ascending order, so a repeat can only be the tail.
			if n := len(seen); n > 0 && seen[n-1] == i {
				continue
			}
			postings[token.Term] = append(seen, i)
		}
	}
	words := make(map[string]LineSet, len(postings))
	for term, lines := range postings {
		words[term] = LineSet{lines: lines}
	}
	return store, &WordIndex{words: words, store: store, tokens: tokens}
}

// Lookup returns the lines containing term, or the empty set when the term
// never occurs.
func (x *WordIndex) Lookup(term string) LineSet {
	return x.words[term]
}

// Store returns the LineStore the index was built from.
func (x *WordIndex) Store() *LineStore {
	return x.store
}

// Terms returns every indexed word in sorted order.
func (x *WordIndex) Terms() []string {
	terms := make([]string, 0, len(x.words))
	for term := range x.words {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (x *WordIndex) TermCount() int {
	return len(x.words)
}

// TokenCount is the number of word occurrences seen while building.
func (x *WordIndex) TokenCount() int {
	return x.tokens
}
