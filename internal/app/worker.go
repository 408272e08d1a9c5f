package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/offerhub/offerhub/internal/config"
	"github.com/offerhub/offerhub/internal/event"
	"github.com/offerhub/offerhub/internal/repository/postgres"
	"github.com/offerhub/offerhub/internal/worker"
	"github.com/offerhub/offerhub/pkg/database"
	pkgkafka "github.com/offerhub/offerhub/pkg/kafka"
)

// idempotencyTTL bounds how long processed event IDs are remembered.
const idempotencyTTL = 24 * time.Hour

// WorkerApp wires the dependency graph for the asynchronous worker.
type WorkerApp struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	redis    *redis.Client
	producer *pkgkafka.Producer
	worker   *worker.Worker
}

// NewWorkerApp creates the worker application with all dependencies wired.
func NewWorkerApp(cfg *config.Config, logger *slog.Logger) (*WorkerApp, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := newPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("host", cfg.RedisHost))

	producer := newProducer(cfg, logger)
	store := postgres.NewStore(pool)
	publisher := event.NewPublisher(producer)

	engine, err := buildEngine(cfg, store, publisher, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	lookback, err := time.ParseDuration(cfg.ResyncLookback)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse resync lookback %q: %w", cfg.ResyncLookback, err)
	}

	idempotency := pkgkafka.NewRedisIdempotencyStore(redisClient, "offerhub:events:", idempotencyTTL)

	w := worker.New(worker.Config{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaGroupID,
		ResyncSchedule: cfg.ResyncSchedule,
		ResyncLookback: lookback,
	}, engine, store.Campaigns(), idempotency, logger)

	return &WorkerApp{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		worker:   w,
	}, nil
}

// Run starts the worker and blocks until the context is canceled.
func (a *WorkerApp) Run(ctx context.Context) error {
	err := a.worker.Run(ctx)

	if cerr := a.producer.Close(); cerr != nil {
		a.logger.Error("kafka producer close failed", slog.String("error", cerr.Error()))
	}
	if cerr := a.redis.Close(); cerr != nil {
		a.logger.Error("redis close failed", slog.String("error", cerr.Error()))
	}
	a.pool.Close()

	return err
}
