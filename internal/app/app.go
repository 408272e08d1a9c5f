// Package app wires the service's dependency graph for the server and
// worker entrypoints.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/offerhub/offerhub/internal/codegen"
	"github.com/offerhub/offerhub/internal/config"
	"github.com/offerhub/offerhub/internal/event"
	"github.com/offerhub/offerhub/internal/followup"
	handler "github.com/offerhub/offerhub/internal/handler/http"
	"github.com/offerhub/offerhub/internal/repository"
	"github.com/offerhub/offerhub/internal/repository/postgres"
	"github.com/offerhub/offerhub/internal/service"
	"github.com/offerhub/offerhub/internal/sync"
	"github.com/offerhub/offerhub/migrations"
	"github.com/offerhub/offerhub/pkg/database"
	"github.com/offerhub/offerhub/pkg/health"
	pkgkafka "github.com/offerhub/offerhub/pkg/kafka"
)

// App wires together all dependencies and runs the HTTP API.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := newPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	producer := newProducer(cfg, logger)
	store := postgres.NewStore(pool)
	publisher := event.NewPublisher(producer)

	engine, err := buildEngine(cfg, store, publisher, logger)
	if err != nil {
		return nil, err
	}

	campaignService := service.NewCampaignService(store, engine, logger)
	offerService := service.NewOfferService(store, publisher, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	router := handler.NewRouter(campaignService, offerService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown failed", slog.String("error", err.Error()))
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close failed", slog.String("error", err.Error()))
	}
	a.pool.Close()

	a.logger.Info("shutdown complete")
	return nil
}

// newPool connects to PostgreSQL, runs migrations, and exports pool metrics.
func newPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	prometheus.DefaultRegisterer.MustRegister(database.NewPoolStatsCollector(pool, "offerhub"))
	return pool, nil
}

func newProducer(cfg *config.Config, logger *slog.Logger) *pkgkafka.Producer {
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	return producer
}

// buildEngine assembles the sync pipeline with its post-commit hooks.
func buildEngine(cfg *config.Config, store repository.Store, publisher *event.Publisher, logger *slog.Logger) (*sync.Synchronizer, error) {
	indexer, err := followup.NewSearchIndexer(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, store, logger)
	if err != nil {
		return nil, fmt.Errorf("create search indexer: %w", err)
	}

	hooks := []sync.Hook{
		followup.NewMediaCopier(store, logger),
		followup.NewTagSyncer(store, logger),
		indexer,
		publisher,
	}

	pool := sync.NewPoolManager(codegen.New(), logger)
	return sync.NewSynchronizer(
		store,
		sync.NewSweeper(logger),
		sync.NewReconciler(sync.NewProjector(pool, logger), logger),
		hooks,
		logger,
	), nil
}
