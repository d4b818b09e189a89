package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`

	PostgreSQL PostgreSQLConfig `ignored:"true"`
	Server     ServerConfig     `ignored:"true"`
	Search     SearchConfig     `ignored:"true"`
	Matching   MatchingConfig   `ignored:"true"`
	Store      StoreConfig      `ignored:"true"`
	Redis      RedisConfig      `ignored:"true"`
	Kafka      KafkaConfig      `ignored:"true"`
	Logging    LoggingConfig    `ignored:"true"`
	Metrics    MetricsConfig    `ignored:"true"`
}

// PostgreSQLConfig holds PostgreSQL database configuration (PG_*)
type PostgreSQLConfig struct {
	Host               string `split_words:"true" default:"localhost"`
	Port               int    `split_words:"true" default:"5432"`
	User               string `split_words:"true" default:"postgres"`
	Password           string `split_words:"true"`
	Database           string `split_words:"true" default:"propsearch"`
	SSLMode            string `split_words:"true" default:"disable"`
	MaxConnections     int    `split_words:"true" default:"25"`
	MaxIdleConnections int    `split_words:"true" default:"5"`
}

// ServerConfig holds server configuration (SERVER_*)
type ServerConfig struct {
	Port            int           `split_words:"true" default:"8080"`
	Host            string        `split_words:"true" default:"0.0.0.0"`
	GinMode         string        `split_words:"true" default:"release"`
	AllowedOrigins  []string      `split_words:"true" default:"*"`
	AllowedMethods  []string      `split_words:"true" default:"GET,POST,OPTIONS"`
	AllowedHeaders  []string      `split_words:"true" default:"Content-Type,Authorization,X-Request-ID,X-User-ID,X-User-Email"`
	ShutdownTimeout time.Duration `split_words:"true" default:"15s"`
}

// SearchConfig holds search-related configuration (SEARCH_*)
type SearchConfig struct {
	MaxResults   int           `split_words:"true" default:"200"`
	Timeout      time.Duration `split_words:"true" default:"10s"`
	HistoryLimit int           `split_words:"true" default:"20"`
}

// MatchingConfig tunes query building and preference scoring (MATCHING_*)
type MatchingConfig struct {
	PriceTolerance float64       `split_words:"true" default:"0.2"`
	FuzzyThreshold float64       `split_words:"true" default:"0.8"`
	RulesFile      string        `split_words:"true"`
	HistoryTimeout time.Duration `split_words:"true" default:"3s"`
}

// StoreConfig selects storage backends (STORE_*)
type StoreConfig struct {
	Backend        string `split_words:"true" default:"postgres"`
	SeedFile       string `split_words:"true"`
	HistoryBackend string `split_words:"true" default:"postgres"`
}

// RedisConfig holds Redis configuration for the history store (REDIS_*)
type RedisConfig struct {
	Addr       string `split_words:"true" default:"localhost:6379"`
	Password   string `split_words:"true"`
	DB         int    `split_words:"true" default:"0"`
	PoolSize   int    `split_words:"true" default:"10"`
	KeyPrefix  string `split_words:"true" default:"propsearch:"`
	MaxEntries int64  `split_words:"true" default:"100"`
}

// KafkaConfig holds analytics publishing configuration (KAFKA_*).
// Analytics are off when Brokers is empty.
type KafkaConfig struct {
	Brokers    []string `split_words:"true"`
	Topic      string   `split_words:"true" default:"search-events"`
	BufferSize int      `split_words:"true" default:"10000"`
}

// LoggingConfig holds logging configuration (LOG_*)
type LoggingConfig struct {
	Level  string `split_words:"true" default:"info"`
	Format string `split_words:"true" default:"json"`
}

// MetricsConfig holds metrics configuration (METRICS_*)
type MetricsConfig struct {
	Enabled bool `split_words:"true" default:"true"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{}
	sections := []struct {
		prefix string
		target any
	}{
		{"", cfg},
		{"PG", &cfg.PostgreSQL},
		{"SERVER", &cfg.Server},
		{"SEARCH", &cfg.Search},
		{"MATCHING", &cfg.Matching},
		{"STORE", &cfg.Store},
		{"REDIS", &cfg.Redis},
		{"KAFKA", &cfg.Kafka},
		{"LOG", &cfg.Logging},
		{"METRICS", &cfg.Metrics},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.prefix, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be expressed as defaults
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.Store.Backend)
	}
	switch c.Store.HistoryBackend {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("STORE_HISTORY_BACKEND must be postgres, redis or memory, got %q", c.Store.HistoryBackend)
	}
	if c.Matching.PriceTolerance <= 0 || c.Matching.PriceTolerance >= 1 {
		return fmt.Errorf("MATCHING_PRICE_TOLERANCE must be between 0 and 1, got %v", c.Matching.PriceTolerance)
	}
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return fmt.Errorf("MATCHING_FUZZY_THRESHOLD must be between 0 and 1, got %v", c.Matching.FuzzyThreshold)
	}
	return nil
}

// UsesPostgres reports whether any backend needs a database connection
func (c *Config) UsesPostgres() bool {
	return c.Store.Backend == "postgres" || c.Store.HistoryBackend == "postgres"
}

// AnalyticsEnabled reports whether search events are published
func (c *Config) AnalyticsEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}
