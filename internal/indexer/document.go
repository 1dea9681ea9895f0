// Package indexer turns a line-oriented text source into a queryable
// Document: the LineStore holding its text, the WordIndex over it, and a
// content fingerprint identifying it to caches and analytics.
package indexer

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer/index"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

// MaxLineBytes bounds a single line read from a source.
const MaxLineBytes = 1 << 20

type Document struct {
	Name        string
	Store       *index.LineStore
	Index       *index.WordIndex
	Fingerprint string
}

// NewDocument indexes lines that are already in memory.
func NewDocument(name string, lines []string) *Document {
	store, idx := index.Build(lines)
	return &Document{
		Name:        name,
		Store:       store,
		Index:       idx,
		Fingerprint: fingerprint(lines),
	}
}

// Read consumes r line by line and indexes the result. Trailing carriage
// returns are dropped so CRLF sources index the same as LF ones.
func Read(name string, r io.Reader) (*Document, error) {
	start := time.Now()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	lines := make([]string, 0, 256)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s at line %d: %w", name, len(lines)+1, err)
	}
	doc := NewDocument(name, lines)
	slog.Default().With("component", "indexer").Info("document indexed",
		"document", name,
		"lines", doc.Store.Len(),
		"terms", doc.Index.TermCount(),
		"tokens", doc.Index.TokenCount(),
		"fingerprint", doc.ShortFingerprint(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// Load opens path and indexes it. Files ending in .xz are decompressed.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening xz stream %s: %w", path, err)
		}
		r = xr
	}
	return Read(path, r)
}

// ShortFingerprint is the leading 16 hex characters of the fingerprint.
func (d *Document) ShortFingerprint() string {
	if len(d.Fingerprint) < 16 {
		return d.Fingerprint
	}
	return d.Fingerprint[:16]
}

func fingerprint(lines []string) string {
	h := blake3.New()
	for i, line := range lines {
		if i > 0 {
			h.Write([]byte{'\n'})
		}
		io.WriteString(h, line)
	}
	return hex.EncodeToString(h.Sum(nil))
}
