package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, 0.2, cfg.Matching.PriceTolerance)
	assert.Equal(t, 0.8, cfg.Matching.FuzzyThreshold)
	assert.Equal(t, 3*time.Second, cfg.Matching.HistoryTimeout)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.AnalyticsEnabled())
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password= dbname=propsearch sslmode=disable",
		cfg.GetPostgreSQLDSN())
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_MAX_CONNECTIONS", "50")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MATCHING_PRICE_TOLERANCE", "0.15")
	t.Setenv("MATCHING_RULES_FILE", "/etc/propsearch/rules.yaml")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("STORE_HISTORY_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "debug")
	// unprefixed names must not leak into sections
	t.Setenv("HOST", "wrong")
	t.Setenv("PORT", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.PostgreSQL.Host)
	assert.Equal(t, 50, cfg.PostgreSQL.MaxConnections)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 0.15, cfg.Matching.PriceTolerance)
	assert.Equal(t, "/etc/propsearch/rules.yaml", cfg.Matching.RulesFile)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.AnalyticsEnabled())
	assert.False(t, cfg.UsesPostgres())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DatabaseURLWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://u:p@h:5432/d?sslmode=require")
	t.Setenv("PG_HOST", "ignored")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=require", cfg.GetPostgreSQLDSN())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store", "STORE_BACKEND", "mongo"},
		{"unknown history store", "STORE_HISTORY_BACKEND", "file"},
		{"tolerance too wide", "MATCHING_PRICE_TOLERANCE", "1.5"},
		{"negative threshold", "MATCHING_FUZZY_THRESHOLD", "-0.1"},
		{"malformed number", "SERVER_PORT", "eighty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
