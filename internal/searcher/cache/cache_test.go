package cache

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/textquery/pkg/errors"
)

func TestBuildKey(t *testing.T) {
	fp := strings.Repeat("ab", 32)
	key := BuildKey(fp, "(a & b)")

	if !strings.HasPrefix(key, keyPrefix+fp[:16]+":") {
		t.Errorf("key %q lacks prefix and fingerprint", key)
	}
	if got := len(key) - len(keyPrefix) - 17; got != 16 {
		t.Errorf("query hash length = %d, want 16", got)
	}
	if BuildKey(fp, "(a & b)") != key {
		t.Error("BuildKey is not deterministic")
	}
	if BuildKey(fp, "(b & a)") == key {
		t.Error("different queries produced the same key")
	}
	if BuildKey(strings.Repeat("cd", 32), "(a & b)") == key {
		t.Error("different documents produced the same key")
	}
}

func TestEncodeDecode(t *testing.T) {
	doc := indexer.NewDocument("test", []string{"a b", "b c", "a c"})
	r, err := query.New("a").Or(query.New("c")).Evaluate(doc.Index, doc.Store)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	data, err := encode(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decode(data, r.Sought(), doc.Store)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Sought() != r.Sought() {
		t.Errorf("sought = %q, want %q", got.Sought(), r.Sought())
	}
	if !got.Lines().Equal(r.Lines()) {
		t.Errorf("lines = %v, want %v", got.Lines(), r.Lines())
	}
	if got.Store() != doc.Store {
		t.Error("decoded result is not bound to the live store")
	}
}

func TestEncodeEmptyResult(t *testing.T) {
	doc := indexer.NewDocument("test", []string{"a"})
	r, err := query.New("missing").Evaluate(doc.Index, doc.Store)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	data, err := encode(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if want := `{"sought":"missing","lines":[]}`; string(data) != want {
		t.Errorf("encode = %s, want %s", data, want)
	}
}

func TestDecodeRejectsOutOfRangeLines(t *testing.T) {
	doc := indexer.NewDocument("test", []string{"a", "b"})
	_, err := decode([]byte(`{"sought":"a","lines":[0,5]}`), "a", doc.Store)
	if !errors.Is(err, apperrors.ErrLineOutOfRange) {
		t.Errorf("err = %v, want ErrLineOutOfRange", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	doc := indexer.NewDocument("test", []string{"a"})
	if _, err := decode([]byte("not json"), "a", doc.Store); err == nil {
		t.Error("expected error for malformed entry")
	}
}

func TestDecodeRejectsForeignQuery(t *testing.T) {
	doc := indexer.NewDocument("test", []string{"a", "b"})
	data := []byte(`{"sought":"(a | b)","lines":[0,1]}`)

	_, err := decode(data, "a", doc.Store)
	if !errors.Is(err, errKeyCollision) {
		t.Fatalf("err = %v, want errKeyCollision", err)
	}
	if _, err := decode(data, "(a | b)", doc.Store); err != nil {
		t.Errorf("decode for the owning query: %v", err)
	}
}
