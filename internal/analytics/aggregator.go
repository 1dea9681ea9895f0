package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/kafka"
)

// Stats is a point-in-time summary of the query events seen so far.
type Stats struct {
	TotalQueries     int64        `json:"total_queries"`
	ZeroMatchCount   int64        `json:"zero_match_count"`
	InvalidCount     int64        `json:"invalid_count"`
	CacheHits        int64        `json:"cache_hits"`
	CacheMisses      int64        `json:"cache_misses"`
	AvgLatencyMicros float64      `json:"avg_latency_us"`
	P50LatencyMicros int64        `json:"p50_latency_us"`
	P95LatencyMicros int64        `json:"p95_latency_us"`
	P99LatencyMicros int64        `json:"p99_latency_us"`
	TopQueries       []QueryCount `json:"top_queries"`
	ZeroMatchQueries []QueryCount `json:"zero_match_queries"`
	QueriesPerMinute float64      `json:"queries_per_minute"`
	Documents        int          `json:"documents"`
	CapturedAt       time.Time    `json:"captured_at"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// maxLatencySamples caps the latency window used for percentiles. When it
// fills, the older half is discarded.
const maxLatencySamples = 100_000

const topQueryLimit = 10

// Aggregator folds query events into running totals.
type Aggregator struct {
	mu               sync.RWMutex
	totalQueries     int64
	zeroMatches      int64
	invalid          int64
	cacheHits        int64
	cacheMisses      int64
	latencies        []int64
	queryCounts      map[string]int64
	zeroMatchQueries map[string]int64
	documents        map[string]struct{}
	startTime        time.Time
	now              func() time.Time
	logger           *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:        make([]int64, 0, 1024),
		queryCounts:      make(map[string]int64),
		zeroMatchQueries: make(map[string]int64),
		documents:        make(map[string]struct{}),
		startTime:        time.Now(),
		now:              time.Now,
		logger:           slog.Default().With("component", "analytics-aggregator"),
	}
}

// Consume reads query events from topic until ctx is cancelled.
func (a *Aggregator) Consume(ctx context.Context, cfg config.KafkaConfig, topic string) error {
	a.logger.Info("analytics aggregator starting", "topic", topic)
	return kafka.NewConsumer(cfg, topic, HandleEvent(a)).Start(ctx)
}

// HandleEvent adapts agg to a Kafka message handler. Undecodable messages
// are logged and skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode query event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one event into the totals.
func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalQueries++
	if event.Fingerprint != "" {
		a.documents[event.Fingerprint] = struct{}{}
	}
	if event.Type == EventInvalidQuery {
		a.invalid++
		return
	}
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}

	if len(a.latencies) >= maxLatencySamples {
		a.latencies = append(a.latencies[:0], a.latencies[len(a.latencies)/2:]...)
	}
	a.latencies = append(a.latencies, event.LatencyMicros)
	a.queryCounts[event.Query]++
	if event.Matches == 0 {
		a.zeroMatches++
		a.zeroMatchQueries[event.Query]++
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()
	stats := Stats{
		TotalQueries:     a.totalQueries,
		ZeroMatchCount:   a.zeroMatches,
		InvalidCount:     a.invalid,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		TopQueries:       topN(a.queryCounts, topQueryLimit),
		ZeroMatchQueries: topN(a.zeroMatchQueries, topQueryLimit),
		Documents:        len(a.documents),
		CapturedAt:       now.UTC(),
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMicros = float64(sum) / float64(len(sorted))
		stats.P50LatencyMicros = percentile(sorted, 50)
		stats.P95LatencyMicros = percentile(sorted, 95)
		stats.P99LatencyMicros = percentile(sorted, 99)
	}
	if elapsed := now.Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.totalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n highest counts, ties broken by query text.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(result, func(a, b QueryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
