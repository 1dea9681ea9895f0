// Package handler exposes query evaluation, document statistics, and cache
// control over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/display"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textquery/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/middleware"
)

type QueryExecutor interface {
	Execute(ctx context.Context, q query.Query) (*query.Result, error)
	Document() *indexer.Document
}

// ResultCache is satisfied by *cache.QueryCache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, doc *indexer.Document, q query.Query, computeFn func() (*query.Result, error)) (*query.Result, bool, error)
	Invalidate(ctx context.Context) (int64, error)
	Stats() (hits, misses int64)
}

// EventTracker is satisfied by *analytics.Collector.
type EventTracker interface {
	Track(event analytics.QueryEvent)
}

type Match struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// QueryResponse carries the canonical query text and, in Expression, the
// same query in a form that can be sent back as ?q= unchanged.
type QueryResponse struct {
	Query       string  `json:"query"`
	Expression  string  `json:"expression"`
	Occurrences int     `json:"occurrences"`
	Matches     []Match `json:"matches"`
	CacheHit    bool    `json:"cache_hit"`
}

type DocumentResponse struct {
	Name        string `json:"name"`
	Lines       int    `json:"lines"`
	Terms       int    `json:"terms"`
	Fingerprint string `json:"fingerprint"`
}

type Handler struct {
	executor       QueryExecutor
	cache          ResultCache
	tracker        EventTracker
	maxQueryLength int
	maxQueryDepth  int
	logger         *slog.Logger
}

// New wires the handler. cache and tracker may be nil. Non-positive limits
// in cfg are not enforced.
func New(exec QueryExecutor, resultCache ResultCache, tracker EventTracker, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor:       exec,
		cache:          resultCache,
		tracker:        tracker,
		maxQueryLength: cfg.MaxQueryLength,
		maxQueryDepth:  cfg.MaxQueryDepth,
		logger:         logger.WithComponent("query-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/query", h.Query)
	mux.HandleFunc("GET /api/v1/document", h.Document)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Query evaluates ?q=. With ?format=text the display form is returned
// instead of JSON.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	text := r.URL.Query().Get("q")
	if text == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if h.maxQueryLength > 0 && len(text) > h.maxQueryLength {
		err := apperrors.Newf(apperrors.ErrQueryTooLong, http.StatusBadRequest,
			"query is %d bytes, limit is %d", len(text), h.maxQueryLength)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	doc := h.executor.Document()
	q, err := parser.Parse(text)
	if err != nil {
		h.track(ctx, doc, analytics.QueryEvent{Type: analytics.EventInvalidQuery, Query: text}, start)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	if depth := query.Depth(q.Expr()); h.maxQueryDepth > 0 && depth > h.maxQueryDepth {
		err := apperrors.Newf(apperrors.ErrQueryTooDeep, http.StatusBadRequest,
			"query nests %d levels, limit is %d", depth, h.maxQueryDepth)
		h.track(ctx, doc, analytics.QueryEvent{Type: analytics.EventInvalidQuery, Query: text}, start)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	var (
		result   *query.Result
		cacheHit bool
	)
	compute := func() (*query.Result, error) { return h.executor.Execute(ctx, q) }
	if h.cache != nil && doc != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, doc, q, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("query execution failed", "query", q.String(), "error", err)
		}
		h.writeError(w, status, errorMessage(err))
		return
	}

	log.Info("query completed",
		"query", result.Sought(),
		"occurrences", result.Len(),
		"cache_hit", cacheHit,
		"latency_us", time.Since(start).Microseconds(),
	)
	h.track(ctx, doc, analytics.QueryEvent{
		Type:     analytics.TypeFor(result.Len()),
		Query:    result.Sought(),
		Terms:    q.Terms(),
		Matches:  result.Len(),
		CacheHit: cacheHit,
	}, start)

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := display.Write(w, result); err != nil {
			h.logger.Error("failed to write response", "error", err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, newQueryResponse(q, result, cacheHit))
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	doc := h.executor.Document()
	if doc == nil {
		h.writeError(w, http.StatusServiceUnavailable, apperrors.ErrDocumentUnavailable.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, DocumentResponse{
		Name:        doc.Name,
		Lines:       doc.Store.Len(),
		Terms:       doc.Index.TermCount(),
		Fingerprint: doc.Fingerprint,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) track(ctx context.Context, doc *indexer.Document, event analytics.QueryEvent, start time.Time) {
	if h.tracker == nil {
		return
	}
	if doc != nil {
		event.Fingerprint = doc.Fingerprint
	}
	event.LatencyMicros = time.Since(start).Microseconds()
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.tracker.Track(event)
}

func newQueryResponse(q query.Query, r *query.Result, cacheHit bool) QueryResponse {
	lines := r.LineNumbers()
	return QueryResponse{
		Query:       r.Sought(),
		Expression:  parser.Format(q),
		Occurrences: r.Len(),
		Matches: lo.Map(lines, func(i int, _ int) Match {
			text, _ := r.Line(i)
			return Match{Line: i + 1, Text: text}
		}),
		CacheHit: cacheHit,
	}
}

// errorMessage hides internal detail from clients for server-side failures.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrDocumentUnavailable), errors.Is(err, apperrors.ErrTimeout):
		return err.Error()
	case apperrors.HTTPStatusCode(err) < http.StatusInternalServerError:
		return err.Error()
	default:
		return apperrors.ErrInternal.Error()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
