// Package handler serves the search, crawl, graph, document and cache
// endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/resilience"
)

// Engine is the corpus the handler queries and re-crawls.
type Engine interface {
	Search(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
	CrawlAndRank(ctx context.Context, seed string, epsilon float64) (*engine.Report, error)
	Document(id string) (*engine.Document, bool)
	Fingerprint() string
	String() string
}

// Tracker receives analytics events. Both *analytics.Collector and
// *analytics.Aggregator satisfy it.
type Tracker interface {
	Track(event analytics.Event)
}

type Config struct {
	DefaultLimit int
	MaxResults   int
	Timeout      time.Duration
	Epsilon      float64
	DefaultSeed  string
}

type Handler struct {
	engine   Engine
	cache    *cache.QueryCache
	tracker  Tracker
	notifier analytics.Publisher
	cfg      Config
	logger   *slog.Logger
}

// New creates a Handler. queryCache, tracker and notifier may be nil.
func New(eng Engine, queryCache *cache.QueryCache, tracker Tracker, notifier analytics.Publisher, cfg Config) *Handler {
	return &Handler{
		engine:   eng,
		cache:    queryCache,
		tracker:  tracker,
		notifier: notifier,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/search?q=&mode=keyword|phrase&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	mode, err := parser.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
		limit = h.cfg.MaxResults
	}

	plan := parser.Parse(query, mode)
	if len(plan.Terms) == 0 {
		h.writeJSON(w, http.StatusOK, &executor.SearchResult{
			Query:   query,
			Mode:    mode,
			Results: []ranker.ScoredDoc{},
		})
		return
	}

	compute := func() (*executor.SearchResult, error) {
		return resilience.WithTimeout(ctx, h.cfg.Timeout, "search", func(ctx context.Context) (*executor.SearchResult, error) {
			return h.engine.Search(ctx, plan, limit)
		})
	}
	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, limit, h.engine.Fingerprint(), compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		log.Error("search execution failed", "query", query, "mode", mode.String(), "error", err)
		h.writeError(w, err)
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"mode", mode.String(),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.tracker != nil {
		eventType := analytics.EventSearch
		if result.TotalHits == 0 {
			eventType = analytics.EventZeroResult
		}
		h.tracker.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			Mode:      mode.String(),
			Terms:     plan.Terms,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Crawl serves POST /api/v1/crawl?seed=. It crawls from seed (or the
// configured default), re-ranks the graph, drops cached results and
// announces the change to other instances.
func (h *Handler) Crawl(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	seed := r.URL.Query().Get("seed")
	if seed == "" {
		seed = h.cfg.DefaultSeed
	}
	if seed == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'seed' is required"))
		return
	}

	report, err := h.engine.CrawlAndRank(ctx, seed, h.cfg.Epsilon)
	if err != nil {
		log.Error("crawl failed", "seed", seed, "error", err)
		h.writeError(w, err)
		return
	}

	if h.cache != nil {
		if _, err := h.cache.Invalidate(ctx); err != nil {
			log.Warn("cache invalidation after crawl failed", "error", err)
		}
	}
	if h.notifier != nil {
		event := analytics.IndexCompleteEvent{
			Type:      analytics.EventIndexComplete,
			RunID:     report.RunID,
			Seed:      seed,
			Nodes:     report.Nodes,
			Terms:     report.Terms,
			Timestamp: time.Now().UTC(),
		}
		if err := h.notifier.Publish(ctx, kafka.Event{
			Key:   event.EventKey(),
			Type:  string(event.EventType()),
			Value: event,
		}); err != nil {
			log.Warn("publishing index.complete failed", "run_id", report.RunID, "error", err)
		}
	}
	if h.tracker != nil {
		h.tracker.Track(analytics.CrawlEvent{
			Type:             analytics.EventCrawl,
			RunID:            report.RunID,
			Seed:             seed,
			DocumentsIndexed: report.Crawl.DocumentsIndexed,
			NodesAdded:       report.Crawl.NodesAdded,
			EdgesAdded:       report.Crawl.EdgesAdded,
			RankIterations:   report.Rank.Iterations,
			RankConverged:    report.Rank.Converged,
			LatencyMs:        time.Since(start).Milliseconds(),
			Timestamp:        time.Now().UTC(),
		})
	}
	log.Info("crawl completed",
		"run_id", report.RunID,
		"seed", seed,
		"documents_indexed", report.Crawl.DocumentsIndexed,
		"rank_iterations", report.Rank.Iterations,
	)
	h.writeJSON(w, http.StatusOK, report)
}

// Graph serves GET /api/v1/graph as plain text, one node per line.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintln(w, h.engine.String()); err != nil {
		h.logger.Error("failed to write graph", "error", err)
	}
}

// Document serves GET /api/v1/documents/{id}: the node's visited flag, rank
// and links in both directions.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, ok := h.engine.Document(id)
	if !ok {
		h.writeError(w, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "document %q is not in the graph", id))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
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
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError picks the status from err. Server errors hide the detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
