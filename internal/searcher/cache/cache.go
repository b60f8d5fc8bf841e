// Package cache stores search results in Redis keyed by normalized query,
// mode, limit and corpus generation. Replicas with different corpora share
// one Redis without reading each other's results. Redis failures degrade to
// cache misses; a circuit breaker stops hammering an unavailable server.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewBreaker("redis-cache", resilience.BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get returns the result cached for plan against the corpus generation.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, limit int, generation string) (*executor.SearchResult, bool) {
	key := buildKey(plan, limit, generation)
	var data string
	found := false
	err := c.breaker.Do(func() error {
		v, err := c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

// Set caches result under the generation that produced it.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, limit int, result *executor.SearchResult) {
	key := buildKey(plan, limit, result.Generation)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for plan at generation, or runs
// computeFn once per key across concurrent callers and caches its result.
// The computed result is stored under its own Generation, which differs
// from generation when the corpus changed in between. The bool reports a
// cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	limit int,
	generation string,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, plan, limit, generation); ok {
		return result, true, nil
	}
	key := buildKey(plan, limit, generation)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate removes every cached result and returns the number of keys
// deleted.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Do(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w: %v", apperrors.ErrCacheUnavailable, err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// HandleIndexComplete is a kafka.MessageHandler that flushes the cache when
// an instance finishes a crawl, dropping entries no replica can reach any
// more. Other event types are ignored.
func (c *QueryCache) HandleIndexComplete(ctx context.Context, msg kafka.Message) error {
	if msg.Type != "" && msg.Type != string(analytics.EventIndexComplete) {
		return nil
	}
	event, err := kafka.DecodeJSON[analytics.IndexCompleteEvent](msg.Value)
	if err != nil {
		c.logger.Warn("skipping undecodable index event", "error", err)
		return nil
	}
	c.logger.Info("index changed, invalidating cache", "seed", event.Seed, "run_id", event.RunID)
	_, err = c.Invalidate(ctx)
	return err
}

// Stats returns the hit and miss counts since start.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the Redis circuit breaker state.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey keeps term order: it decides phrase matching and keyword tie order.
func buildKey(plan *parser.QueryPlan, limit int, generation string) string {
	raw := fmt.Sprintf("%s|%s|limit=%d|gen=%s", plan.Mode, strings.Join(plan.Terms, " "), limit, generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
