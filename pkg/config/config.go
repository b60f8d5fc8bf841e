// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, Source, Crawler, Rank, Search, Postgres, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Rank     RankConfig     `yaml:"rank"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
// InstanceID names this process among replicas sharing Redis and Kafka. It
// defaults to the hostname and must stay the same across restarts.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	InstanceID      string        `yaml:"instanceID"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Document source kinds.
const (
	SourceXML      = "xml"
	SourcePostgres = "postgres"
)

// SourceConfig selects the document source and the seed document the
// crawl starts from.
type SourceConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	Seed string `yaml:"seed"`
}

// CrawlerConfig bounds a single crawl. MaxDocuments of 0 means unlimited.
type CrawlerConfig struct {
	MaxDocuments int `yaml:"maxDocuments"`
}

// RankConfig controls the iterative rank computation. MaxIterations of 0
// disables the iteration cap.
type RankConfig struct {
	Epsilon       float64 `yaml:"epsilon"`
	MaxIterations int     `yaml:"maxIterations"`
}

// SearchConfig controls query result limits and timeouts.
type SearchConfig struct {
	DefaultLimit int           `yaml:"defaultLimit"`
	MaxResults   int           `yaml:"maxResults"`
	Timeout      time.Duration `yaml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the query cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings. No brokers disables
// event publishing and cache-invalidation consumption.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if cfg.Server.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolving instance id: %w", err)
		}
		cfg.Server.InstanceID = host
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceXML:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for the xml source")
		}
	case SourcePostgres:
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Rank.Epsilon <= 0 {
		return fmt.Errorf("rank.epsilon must be positive, got %v", c.Rank.Epsilon)
	}
	if c.Rank.MaxIterations < 0 {
		return fmt.Errorf("rank.maxIterations must not be negative")
	}
	if c.Crawler.MaxDocuments < 0 {
		return fmt.Errorf("crawler.maxDocuments must not be negative")
	}
	if c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search.defaultLimit (%d) exceeds search.maxResults (%d)",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

// Default returns a Config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Source: SourceConfig{
			Kind: SourceXML,
			Path: "data/webpages.xml",
		},
		Rank: RankConfig{
			Epsilon:       0.01,
			MaxIterations: 10000,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
			Timeout:      5 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "linkrank",
			User:            "linkrank",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "linkrank-searcher",
			Topics: KafkaTopics{
				IndexComplete:   "index.complete",
				AnalyticsEvents: "analytics-events",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads LR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("LR_SERVER_PORT", &cfg.Server.Port)
	setString("LR_INSTANCE_ID", &cfg.Server.InstanceID)
	setString("LR_SOURCE_KIND", &cfg.Source.Kind)
	setString("LR_SOURCE_PATH", &cfg.Source.Path)
	setString("LR_SOURCE_SEED", &cfg.Source.Seed)
	setInt("LR_CRAWLER_MAX_DOCUMENTS", &cfg.Crawler.MaxDocuments)
	if v := os.Getenv("LR_RANK_EPSILON"); v != "" {
		if eps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rank.Epsilon = eps
		}
	}
	setInt("LR_RANK_MAX_ITERATIONS", &cfg.Rank.MaxIterations)
	setString("LR_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("LR_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("LR_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("LR_POSTGRES_USER", &cfg.Postgres.User)
	setString("LR_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("LR_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setString("LR_REDIS_ADDR", &cfg.Redis.Addr)
	setString("LR_REDIS_PASSWORD", &cfg.Redis.Password)
	if v := os.Getenv("LR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("LR_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("LR_LOGGING_FORMAT", &cfg.Logging.Format)
	setInt("LR_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
