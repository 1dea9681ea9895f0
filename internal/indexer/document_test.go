package indexer

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestReadSplitsLines(t *testing.T) {
	doc, err := Read("inline", strings.NewReader("a b\r\nb c\n\na c"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got, want := doc.Store.Lines(), []string{"a b", "b c", "", "a c"}; !slices.Equal(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
	if got := doc.Index.Lookup("a").Lines(); !slices.Equal(got, []int{0, 3}) {
		t.Errorf("Lookup(a) = %v", got)
	}
	if doc.Index.Store() != doc.Store {
		t.Error("index and store are not paired")
	}
}

func TestReadEmpty(t *testing.T) {
	doc, err := Read("empty", strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.Store.Len() != 0 || doc.Index.TermCount() != 0 {
		t.Errorf("expected empty document, got %d lines", doc.Store.Len())
	}
	if len(doc.Fingerprint) != 64 {
		t.Errorf("fingerprint %q is not 32 hex bytes", doc.Fingerprint)
	}
}

func TestReadLineTooLong(t *testing.T) {
	long := strings.Repeat("x", MaxLineBytes+1)
	if _, err := Read("long", strings.NewReader(long)); err == nil {
		t.Fatal("expected error for oversized line")
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	a := NewDocument("a", []string{"a b", "c"})
	b := NewDocument("b", []string{"a b", "c"})
	c := NewDocument("c", []string{"a", "b c"})
	if a.Fingerprint != b.Fingerprint {
		t.Error("identical content produced different fingerprints")
	}
	if a.Fingerprint == c.Fingerprint {
		t.Error("different line split produced the same fingerprint")
	}
	if len(a.ShortFingerprint()) != 16 {
		t.Errorf("ShortFingerprint() = %q", a.ShortFingerprint())
	}
}

func TestLoadPlainAndXZ(t *testing.T) {
	dir := t.TempDir()
	text := "a b\nb c\na c\n"

	plain := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(plain, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "doc.txt.xz")
	if err := os.WriteFile(compressed, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(plain)
	if err != nil {
		t.Fatalf("Load plain: %v", err)
	}
	x, err := Load(compressed)
	if err != nil {
		t.Fatalf("Load xz: %v", err)
	}
	if p.Fingerprint != x.Fingerprint {
		t.Error("plain and xz sources differ")
	}
	if p.Store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Store.Len())
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error")
	}
}
