package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestScrapeMuxServesCallerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.DocumentLines.Set(42)

	srv := httptest.NewServer(scrapeMux("searcher", reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "textquery_document_lines 42") {
		t.Errorf("scrape output missing document gauge:\n%s", body)
	}
	// Collectors on the default registry must not leak into a private one.
	if strings.Contains(string(body), "go_goroutines") {
		t.Error("scrape output contains default registry collectors")
	}

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "searcher metrics") {
		t.Errorf("index page = %q", body)
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", resp.StatusCode)
	}
}

func TestNewServerAddr(t *testing.T) {
	s := NewServer(9100, "analytics", prometheus.NewRegistry())
	if s.Addr() != ":9100" {
		t.Errorf("Addr() = %q, want :9100", s.Addr())
	}
}
