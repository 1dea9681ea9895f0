// Package tokenizer splits document lines into words. Words are maximal runs
// of non-whitespace characters and are kept exactly as written: no case
// folding, no stemming, no stop-word removal.
package tokenizer

import "strings"

// Token is a single word and its position within the line.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks a line into whitespace-delimited Tokens.
func Tokenize(line string) []Token {
	words := strings.Fields(line)
	tokens := make([]Token, len(words))
	for i, word := range words {
		tokens[i] = Token{Term: word, Position: i}
	}
	return tokens
}
