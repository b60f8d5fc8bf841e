package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	src, closeSource, err := source.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open document source", "kind", cfg.Source.Kind, "error", err)
		os.Exit(1)
	}
	defer closeSource()

	eng := engine.New(src, engine.Options{
		MaxDocuments:  cfg.Crawler.MaxDocuments,
		MaxIterations: cfg.Rank.MaxIterations,
		Metrics:       m,
	})
	if cfg.Source.Seed != "" {
		report, err := eng.CrawlAndRank(ctx, cfg.Source.Seed, cfg.Rank.Epsilon)
		if err != nil {
			slog.Error("initial crawl failed", "seed", cfg.Source.Seed, "error", err)
			os.Exit(1)
		}
		slog.Info("initial crawl complete",
			"run_id", report.RunID,
			"nodes", report.Nodes,
			"terms", report.Terms,
			"rank_iterations", report.Rank.Iterations,
		)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	aggregator := analytics.NewAggregator()
	var tracker handler.Tracker = aggregator
	var notifier analytics.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector := analytics.NewCollector(analyticsProducer, 10000, 100, 0)
		collector.Start(gctx)
		defer collector.Close()
		tracker = collector

		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.HandleEvent)
		g.Go(func() error { return analyticsConsumer.Start(gctx) })

		indexProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer indexProducer.Close()
		notifier = indexProducer

		if queryCache != nil {
			// Every instance must see every index.complete, so each one
			// joins its own consumer group, stable across restarts.
			invalidationCfg := cfg.Kafka
			invalidationCfg.ConsumerGroup = fmt.Sprintf("%s-cache-%s", cfg.Kafka.ConsumerGroup, cfg.Server.InstanceID)
			invalidations := kafka.NewConsumer(invalidationCfg, cfg.Kafka.Topics.IndexComplete, queryCache.HandleIndexComplete)
			g.Go(func() error { return invalidations.Start(gctx) })
		}
		slog.Info("kafka enabled",
			"brokers", cfg.Kafka.Brokers,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"index_topic", cfg.Kafka.Topics.IndexComplete,
		)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		nodes, edges, terms := eng.Stats()
		if nodes == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "graph is empty"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d nodes, %d edges, %d terms", nodes, edges, terms),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(eng, queryCache, tracker, notifier, handler.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		Timeout:      cfg.Search.Timeout,
		Epsilon:      cfg.Rank.Epsilon,
		DefaultSeed:  cfg.Source.Seed,
	})
	analyticsH := analytics.NewHandler(aggregator, eng)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/crawl", h.Crawl)
	mux.HandleFunc("GET /api/v1/graph", h.Graph)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics/stats", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// Metrics wraps the mux directly so it sees the matched route pattern.
	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("search service error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
