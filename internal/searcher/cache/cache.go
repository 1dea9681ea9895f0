// Package cache stores query results in Redis keyed by document fingerprint
// and canonical query text, collapsing concurrent misses with singleflight.
// A result is cached as its canonical text plus line indices and rebuilt
// against the live LineStore on a hit, so a stale or foreign entry can
// never smuggle in lines the document does not have.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textquery/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textquery/pkg/redis"
)

const keyPrefix = "textquery:"

var errKeyCollision = errors.New("cache key collision")

// entry is the cached wire form of a result.
type entry struct {
	Sought string `json:"sought"`
	Lines  []int  `json:"lines"`
}

type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache backed by client. m may be nil.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get looks up q for doc. Any Redis or decode failure is logged and
// reported as a miss.
func (c *QueryCache) Get(ctx context.Context, doc *indexer.Document, q query.Query) (*query.Result, bool) {
	key := BuildKey(doc.Fingerprint, q.String())
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	result, err := decode(data, q.String(), doc.Store)
	if err != nil {
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", result.Sought(), "key", key)
	return result, true
}

func (c *QueryCache) Set(ctx context.Context, doc *indexer.Document, result *query.Result) {
	key := BuildKey(doc.Fingerprint, result.Sought())
	data, err := encode(result)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for q or computes and stores it.
// The boolean reports a cache hit. Concurrent misses for the same key share
// one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	doc *indexer.Document,
	q query.Query,
	computeFn func() (*query.Result, error),
) (*query.Result, bool, error) {
	if result, ok := c.Get(ctx, doc, q); ok {
		return result, true, nil
	}
	key := BuildKey(doc.Fingerprint, q.String())
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, doc, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*query.Result), false, nil
}

// Invalidate drops every cached result for every document.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.DeleteByPrefix(ctx, keyPrefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the cache key for a canonical query against the
// document with the given fingerprint.
func BuildKey(fingerprint, repr string) string {
	sum := blake3.Sum256([]byte(repr))
	fp := fingerprint
	if len(fp) > 16 {
		fp = fp[:16]
	}
	return keyPrefix + fp + ":" + hex.EncodeToString(sum[:8])
}

func encode(r *query.Result) ([]byte, error) {
	lines := r.LineNumbers()
	if lines == nil {
		lines = []int{}
	}
	return json.Marshal(entry{Sought: r.Sought(), Lines: lines})
}

// decode rebuilds the entry stored for sought. An entry written for a
// different query that hashed to the same key fails with errKeyCollision.
func decode(data []byte, sought string, store *index.LineStore) (*query.Result, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshalling entry: %w", err)
	}
	if e.Sought != sought {
		return nil, fmt.Errorf("%w: entry holds %q", errKeyCollision, e.Sought)
	}
	return query.NewResult(e.Sought, index.NewLineSet(e.Lines...), store)
}
