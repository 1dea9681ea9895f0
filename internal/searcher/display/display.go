// Package display renders query results as plain text for terminals.
package display

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
)

// Plural returns word with suffix appended when count is greater than one.
// Zero reads as singular ("0 time").
func Plural(count int, word, suffix string) string {
	if count > 1 {
		return word + suffix
	}
	return word
}

// Write prints a header naming the query and its match count, then each
// matching line with its 1-based number:
//
//	(a & b) occurs 1 time
//		(line 1) a b
func Write(w io.Writer, r *query.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s occurs %d %s\n", r.Sought(), r.Len(), Plural(r.Len(), "time", "s"))
	for i, text := range r.All() {
		fmt.Fprintf(bw, "\t(line %d) %s\n", i+1, text)
	}
	return bw.Flush()
}
