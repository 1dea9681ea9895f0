package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textquery/pkg/errors"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*query.Result
	hits    int64
	misses  int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*query.Result)}
}

func (c *fakeCache) GetOrCompute(_ context.Context, _ *indexer.Document, q query.Query, fn func() (*query.Result, error)) (*query.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.entries[q.String()]; ok {
		c.hits++
		return r, true, nil
	}
	c.misses++
	r, err := fn()
	if err != nil {
		return nil, false, err
	}
	c.entries[q.String()] = r
	return r, false, nil
}

func (c *fakeCache) Invalidate(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int64(len(c.entries))
	clear(c.entries)
	return n, nil
}

func (c *fakeCache) Stats() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

type fakeTracker struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (t *fakeTracker) Track(e analytics.QueryEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func newTestServer(t *testing.T, rc ResultCache, tracker EventTracker) *httptest.Server {
	t.Helper()
	doc := indexer.NewDocument("test", []string{"a b", "b c", "a c"})
	exec := executor.New(doc, nil, config.SearchConfig{MaxConcurrentQueries: 2})
	mux := http.NewServeMux()
	New(exec, rc, tracker, config.SearchConfig{MaxQueryLength: 64, MaxQueryDepth: 8}).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getQuery(t *testing.T, srv *httptest.Server, q string) (*http.Response, QueryResponse) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/v1/query?q=" + url.QueryEscape(q))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body QueryResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp, body
}

func TestQueryEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	tests := []struct {
		q         string
		wantQuery string
		wantLines []int
	}{
		{"a", "a", []int{1, 3}},
		{"a & b", "(a & b)", []int{1}},
		{"a | b", "(a | b)", []int{1, 2, 3}},
		{"~a", "~(a)", []int{2}},
		{"z", "z", nil},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			resp, body := getQuery(t, srv, tt.q)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if body.Query != tt.wantQuery {
				t.Errorf("query = %q, want %q", body.Query, tt.wantQuery)
			}
			if body.Occurrences != len(tt.wantLines) || len(body.Matches) != len(tt.wantLines) {
				t.Fatalf("matches = %v, want lines %v", body.Matches, tt.wantLines)
			}
			for i, m := range body.Matches {
				if m.Line != tt.wantLines[i] {
					t.Errorf("matches[%d].Line = %d, want %d", i, m.Line, tt.wantLines[i])
				}
			}
		})
	}
}

func TestQueryEndpointMatchText(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	_, body := getQuery(t, srv, "c & ~b")
	if len(body.Matches) != 1 || body.Matches[0] != (Match{Line: 3, Text: "a c"}) {
		t.Errorf("matches = %v", body.Matches)
	}
}

func TestQueryEndpointQuotedTerms(t *testing.T) {
	doc := indexer.NewDocument("code", []string{"call f(x) now", "a&b here", "f x"})
	exec := executor.New(doc, nil, config.SearchConfig{MaxConcurrentQueries: 1})
	mux := http.NewServeMux()
	New(exec, nil, nil, config.SearchConfig{}).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, body := getQuery(t, srv, `"f(x)" | "a&b"`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Query != "(f(x) | a&b)" {
		t.Errorf("query = %q, want %q", body.Query, "(f(x) | a&b)")
	}
	if body.Expression != `("f(x)" | "a&b")` {
		t.Errorf("expression = %s", body.Expression)
	}
	if body.Occurrences != 2 {
		t.Errorf("occurrences = %d, want 2", body.Occurrences)
	}

	// The expression is accepted back as-is.
	resp, again := getQuery(t, srv, body.Expression)
	if resp.StatusCode != http.StatusOK || again.Occurrences != 2 {
		t.Errorf("resubmitted expression: status %d, occurrences %d", resp.StatusCode, again.Occurrences)
	}
}

func TestQueryEndpointBadRequests(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	tests := []struct {
		name string
		path string
	}{
		{"missing q", "/api/v1/query"},
		{"syntax error", "/api/v1/query?q=" + url.QueryEscape("a &")},
		{"unbalanced", "/api/v1/query?q=" + url.QueryEscape("(a")},
		{"too long", "/api/v1/query?q=" + strings.Repeat("a", 65)},
		{"too deep", "/api/v1/query?q=" + url.QueryEscape(strings.Repeat("~", 8)+"a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestQueryEndpointTextFormat(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	resp, err := http.Get(srv.URL + "/api/v1/query?format=text&q=a")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var sb bytes.Buffer
	if _, err := sb.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "a occurs 2 times\n\t(line 1) a b\n\t(line 3) a c\n"
	if sb.String() != want {
		t.Errorf("body = %q, want %q", sb.String(), want)
	}
}

func TestQueryEndpointUsesCache(t *testing.T) {
	rc := newFakeCache()
	srv := newTestServer(t, rc, nil)

	_, first := getQuery(t, srv, "a & b")
	_, second := getQuery(t, srv, "(a & b)")
	if first.CacheHit {
		t.Error("first query should miss")
	}
	if !second.CacheHit {
		t.Error("equivalent second query should hit")
	}

	resp, err := http.Get(srv.URL + "/api/v1/cache/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()
	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats["hits"] != float64(1) || stats["misses"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
}

func TestCacheInvalidate(t *testing.T) {
	rc := newFakeCache()
	srv := newTestServer(t, rc, nil)
	getQuery(t, srv, "a")

	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if len(rc.entries) != 0 {
		t.Errorf("cache still holds %d entries", len(rc.entries))
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestDocumentEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	resp, err := http.Get(srv.URL + "/api/v1/document")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Lines != 3 || body.Terms != 3 || len(body.Fingerprint) != 64 {
		t.Errorf("document = %+v", body)
	}
}

func TestQueryDepthLimit(t *testing.T) {
	tracker := &fakeTracker{}
	srv := newTestServer(t, nil, tracker)

	resp, body := getQuery(t, srv, strings.Repeat("~", 7)+"a")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("depth 8: status = %d, want 200", resp.StatusCode)
	}
	if body.Occurrences != 1 {
		t.Errorf("depth 8: occurrences = %d, want 1", body.Occurrences)
	}

	resp, _ = getQuery(t, srv, strings.Repeat("~", 8)+"a")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("depth 9: status = %d, want 400", resp.StatusCode)
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if n := len(tracker.events); n != 2 || tracker.events[1].Type != analytics.EventInvalidQuery {
		t.Errorf("events = %+v, want the rejected query tracked as invalid", tracker.events)
	}
}

func TestQueryTracksEvents(t *testing.T) {
	tracker := &fakeTracker{}
	srv := newTestServer(t, nil, tracker)
	getQuery(t, srv, "a & b")
	getQuery(t, srv, "z")
	getQuery(t, srv, "a &")

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if len(tracker.events) != 3 {
		t.Fatalf("tracked %d events, want 3", len(tracker.events))
	}
	wantTypes := []analytics.EventType{analytics.EventQuery, analytics.EventZeroMatch, analytics.EventInvalidQuery}
	for i, e := range tracker.events {
		if e.Type != wantTypes[i] {
			t.Errorf("events[%d].Type = %s, want %s", i, e.Type, wantTypes[i])
		}
		if e.Fingerprint == "" {
			t.Errorf("events[%d] has no fingerprint", i)
		}
	}
	if got := tracker.events[0].Terms; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("terms = %v, want [a b]", got)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := errorMessage(errors.New("secret detail")); got != apperrors.ErrInternal.Error() {
		t.Errorf("errorMessage = %q", got)
	}
}
