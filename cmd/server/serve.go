package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"propsearch/internal/analytics"
	"propsearch/internal/config"
	"propsearch/internal/handler"
	"propsearch/internal/logger"
	"propsearch/internal/metrics"
	"propsearch/internal/repository"
	"propsearch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the search API server on the configured host and port",
		RunE:  runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides SERVER_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

// stores groups the backends selected by configuration
type stores struct {
	listings service.ListingStore
	profiles service.ProfileStore
	history  service.HistoryStore
	checks   map[string]handler.HealthCheck
	closers  []func() error
}

func (s *stores) close(log zerolog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	log := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "propsearch",
	})
	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting propsearch")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	st, err := openStores(cfg, !noMigrate, log)
	if err != nil {
		return err
	}
	defer st.close(log)

	rules, err := service.LoadRules(cfg.Matching.RulesFile)
	if err != nil {
		return err
	}
	normalizer, err := service.NewNormalizer(rules)
	if err != nil {
		return fmt.Errorf("failed to compile rules: %w", err)
	}
	builder := service.NewQueryBuilder(cfg.Matching.PriceTolerance, cfg.Search.MaxResults)
	scorer := service.NewScorer(rules.Weights, cfg.Matching.FuzzyThreshold)
	recorder := service.NewHistoryRecorder(st.history, cfg.Matching.HistoryTimeout, logger.Component(log, "history"), m)

	var events service.EventSink
	var collector *analytics.Collector
	if cfg.AnalyticsEnabled() {
		producer := analytics.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Kafka.BufferSize, logger.Component(log, "analytics"), m)
		collector.Start(context.Background())
		events = collector
	} else {
		log.Info().Msg("analytics disabled (KAFKA_BROKERS not set)")
	}

	searchService := service.NewSearchService(normalizer, builder, scorer, service.SearchDeps{
		Listings: st.listings,
		Profiles: st.profiles,
		History:  recorder,
		Events:   events,
		Metrics:  m,
		Logger:   logger.Component(log, "search"),
		Timeout:  cfg.Search.Timeout,
	})

	gin.SetMode(cfg.Server.GinMode)
	router := handler.NewRouter(handler.RouterConfig{
		SearchService:  searchService,
		HistoryLimit:   cfg.Search.HistoryLimit,
		Metrics:        m,
		Logger:         log,
		Build:          handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		HealthChecks:   st.checks,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: cfg.Server.AllowedMethods,
		AllowedHeaders: cfg.Server.AllowedHeaders,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	recorder.Wait()
	if collector != nil {
		collector.Close()
	}

	log.Info().Msg("server stopped")
	return nil
}

// openStores builds the listing, profile and history backends. A postgres
// connection is opened once and shared when several backends need it.
func openStores(cfg *config.Config, migrate bool, log zerolog.Logger) (*stores, error) {
	st := &stores{checks: map[string]handler.HealthCheck{}}

	var pg *repository.PostgresRepository
	if cfg.UsesPostgres() {
		if migrate {
			if _, err := repository.Migrate(cfg.GetPostgreSQLDSN(), log); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info().Msg("connected to PostgreSQL database")
		pg = repo
		st.closers = append(st.closers, repo.Close)
		st.checks["postgres"] = repo.Ping
	}

	var mem *repository.MemoryStore
	memory := func() (*repository.MemoryStore, error) {
		if mem != nil {
			return mem, nil
		}
		if cfg.Store.SeedFile == "" {
			mem = repository.NewMemoryStore()
			return mem, nil
		}
		seeded, err := repository.LoadSeedFile(cfg.Store.SeedFile)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", cfg.Store.SeedFile).Msg("loaded seed data")
		mem = seeded
		return mem, nil
	}

	switch cfg.Store.Backend {
	case "postgres":
		st.listings, st.profiles = pg, pg
	case "memory":
		ms, err := memory()
		if err != nil {
			st.close(log)
			return nil, err
		}
		st.listings, st.profiles = ms, ms
	}

	switch cfg.Store.HistoryBackend {
	case "postgres":
		st.history = pg
	case "redis":
		rh, err := repository.NewRedisHistory(repository.RedisHistoryConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			KeyPrefix:  cfg.Redis.KeyPrefix,
			MaxEntries: cfg.Redis.MaxEntries,
		})
		if err != nil {
			st.close(log)
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		st.history = rh
		st.closers = append(st.closers, rh.Close)
		st.checks["redis"] = rh.Ping
	case "memory":
		ms, err := memory()
		if err != nil {
			st.close(log)
			return nil, err
		}
		st.history = ms
	}

	return st, nil
}
