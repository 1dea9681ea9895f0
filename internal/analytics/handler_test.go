package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeLister struct {
	stats []Stats
	err   error
	limit int
}

func (f *fakeLister) ListSnapshots(_ context.Context, limit int) ([]Stats, error) {
	f.limit = limit
	return f.stats, f.err
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Type: EventQuery, Query: "a", Matches: 1})
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got Stats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalQueries != 1 {
		t.Errorf("TotalQueries = %d, want 1", got.TotalQueries)
	}
}

func TestHandlerSnapshots(t *testing.T) {
	tests := []struct {
		name      string
		lister    SnapshotLister
		url       string
		wantCode  int
		wantLimit int
	}{
		{"disabled", nil, "/api/v1/analytics/snapshots", http.StatusServiceUnavailable, 0},
		{"default limit", &fakeLister{stats: []Stats{{TotalQueries: 3}}}, "/api/v1/analytics/snapshots", http.StatusOK, 10},
		{"capped limit", &fakeLister{}, "/api/v1/analytics/snapshots?limit=500", http.StatusOK, 100},
		{"bad limit", &fakeLister{}, "/api/v1/analytics/snapshots?limit=x", http.StatusBadRequest, 0},
		{"store error", &fakeLister{err: errors.New("db down")}, "/api/v1/analytics/snapshots", http.StatusInternalServerError, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewAggregator(), tt.lister)
			rec := httptest.NewRecorder()
			h.Snapshots(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if fl, ok := tt.lister.(*fakeLister); ok && tt.wantLimit > 0 && fl.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", fl.limit, tt.wantLimit)
			}
		})
	}
}
