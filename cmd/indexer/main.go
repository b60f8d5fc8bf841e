package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/postgres"
)

// queryFlags collects repeated -q flags.
type queryFlags []string

func (q *queryFlags) String() string {
	return strings.Join(*q, ", ")
}

func (q *queryFlags) Set(v string) error {
	*q = append(*q, v)
	return nil
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	seed := flag.String("seed", "", "document to start crawling from (default: source.seed)")
	epsilon := flag.Float64("epsilon", 0, "rank convergence tolerance (default: rank.epsilon)")
	phrase := flag.Bool("phrase", false, "run queries in phrase mode")
	publish := flag.Bool("publish", false, "publish index.complete to kafka when done")
	importXML := flag.String("import", "", "copy an XML webpages file into postgres and exit")
	var queries queryFlags
	flag.Var(&queries, "q", "query to run after ranking (repeatable)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *importXML != "" {
		if err := importToPostgres(ctx, cfg, *importXML); err != nil {
			slog.Error("import failed", "file", *importXML, "error", err)
			os.Exit(1)
		}
		return
	}

	if *seed == "" {
		*seed = cfg.Source.Seed
	}
	if *seed == "" {
		fmt.Fprintln(os.Stderr, "no seed: pass -seed or set source.seed")
		os.Exit(2)
	}
	if *epsilon == 0 {
		*epsilon = cfg.Rank.Epsilon
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
	})

	if _, err := eng.CrawlAndIndex(ctx, *seed); err != nil {
		slog.Error("crawl failed", "seed", *seed, "error", err)
		os.Exit(1)
	}
	fmt.Println("CRAWLING DONE")
	fmt.Println(eng)
	fmt.Println()

	res, err := eng.AssignRanks(ctx, *epsilon)
	if err != nil {
		slog.Error("ranking failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("RANKS ASSIGNED (iterations=%d converged=%t)\n", res.Iterations, res.Converged)
	fmt.Println(eng)
	fmt.Println()

	for _, q := range queries {
		ids, err := eng.Query(ctx, q, *phrase)
		if err != nil {
			slog.Error("query failed", "query", q, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%q -> %v\n", q, ids)
	}

	if *publish {
		if len(cfg.Kafka.Brokers) == 0 {
			slog.Warn("publish requested but no kafka brokers configured")
			return
		}
		nodes, _, terms := eng.Stats()
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		event := analytics.IndexCompleteEvent{
			Type:      analytics.EventIndexComplete,
			Seed:      *seed,
			Nodes:     nodes,
			Terms:     terms,
			Timestamp: time.Now().UTC(),
		}
		if err := producer.Publish(ctx, kafka.Event{Key: event.EventKey(), Type: string(event.EventType()), Value: event}); err != nil {
			slog.Error("publishing index.complete failed", "error", err)
			os.Exit(1)
		}
		slog.Info("index.complete published", "topic", cfg.Kafka.Topics.IndexComplete)
	}
}

func importToPostgres(ctx context.Context, cfg *config.Config, path string) error {
	docs, err := source.LoadXMLFile(path)
	if err != nil {
		return err
	}
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()

	pg := source.NewPostgres(client)
	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	for _, doc := range docs.Documents() {
		if err := pg.Put(ctx, doc); err != nil {
			return err
		}
	}
	slog.Info("import complete", "file", path, "documents", docs.Len())
	return nil
}
