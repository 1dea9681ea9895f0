// Package executor evaluates parsed queries against the loaded document,
// recording latency and match metrics for each evaluation.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textquery/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/metrics"
)

type Executor struct {
	doc     *indexer.Document
	metrics *metrics.Metrics
	cfg     config.SearchConfig
	logger  *slog.Logger
}

// New returns an executor over doc. m may be nil when metrics are disabled.
func New(doc *indexer.Document, m *metrics.Metrics, cfg config.SearchConfig) *Executor {
	if cfg.MaxConcurrentQueries <= 0 {
		cfg.MaxConcurrentQueries = 1
	}
	return &Executor{
		doc:     doc,
		metrics: m,
		cfg:     cfg,
		logger:  logger.WithComponent("query-executor"),
	}
}

// Document returns the document queries run against.
func (e *Executor) Document() *indexer.Document {
	return e.doc
}

// Execute evaluates q against the document. Evaluation itself never blocks,
// so ctx is only consulted before starting.
func (e *Executor) Execute(ctx context.Context, q query.Query) (*query.Result, error) {
	if e.doc == nil {
		return nil, apperrors.ErrDocumentUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}

	start := time.Now()
	result, err := q.Evaluate(e.doc.Index, e.doc.Store)
	elapsed := time.Since(start)
	if err != nil {
		e.observe("error", elapsed, 0)
		logger.FromContext(ctx).Error("query evaluation failed", "query", q.String(), "error", err)
		return nil, fmt.Errorf("evaluating %s: %w", q, err)
	}

	outcome := "match"
	if result.Len() == 0 {
		outcome = "zero_match"
	}
	e.observe(outcome, elapsed, result.Len())
	logger.FromContext(ctx).Debug("query executed",
		"query", result.Sought(),
		"terms", q.Terms(),
		"matches", result.Len(),
		"latency_us", elapsed.Microseconds(),
	)
	return result, nil
}

// ExecuteBatch evaluates independent queries concurrently, bounded by
// MaxConcurrentQueries. Results come back in input order. The first failure
// cancels the remaining work.
func (e *Executor) ExecuteBatch(ctx context.Context, qs []query.Query) ([]*query.Result, error) {
	results := make([]*query.Result, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrentQueries)
	for i, q := range qs {
		g.Go(func() error {
			r, err := e.Execute(gctx, q)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Info("batch executed", "queries", len(qs))
	return results, nil
}

func (e *Executor) observe(outcome string, elapsed time.Duration, matches int) {
	if e.metrics == nil {
		return
	}
	e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	e.metrics.QueryLatency.Observe(elapsed.Seconds())
	if outcome != "error" {
		e.metrics.QueryMatches.Observe(float64(matches))
	}
}
