package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/moneyledger/internal/adapter/http"
	"github.com/iho/moneyledger/internal/adapter/http/handler"
	"github.com/iho/moneyledger/internal/adapter/http/middleware"
	"github.com/iho/moneyledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/moneyledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/moneyledger/internal/adapter/repository/redis"
	"github.com/iho/moneyledger/internal/infrastructure/config"
	"github.com/iho/moneyledger/internal/infrastructure/eventpublisher"
	"github.com/iho/moneyledger/internal/infrastructure/logger"
	"github.com/iho/moneyledger/internal/infrastructure/metrics"
	"github.com/iho/moneyledger/internal/infrastructure/postgres"
	"github.com/iho/moneyledger/internal/infrastructure/redis"
	"github.com/iho/moneyledger/internal/usecase"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterMaxIdle         = time.Hour
)

func main() {
	// Load configuration
	cfg, err := config.LoadFiles(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "moneyledger"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newApp(ctx, cfg, log, registry)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.rateLimiter != nil {
		go app.cleanupLimiters(ctx)
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      app.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).
			Str("store", cfg.StoreBackend).
			Str("cache", cfg.CacheBackend).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// app is the fully wired service.
type app struct {
	router      http.Handler
	rateLimiter *middleware.RateLimiter
	closers     []func()
	log         zerolog.Logger
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.rateLimiter.CleanupLimiters(limiterMaxIdle); removed > 0 {
				a.log.Debug().Int("removed", removed).Msg("rate limiters cleaned up")
			}
		}
	}
}

type stores struct {
	txManager usecase.TransactionManager
	accounts  usecase.AccountRepository
	postings  usecase.TransactionRepository
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, registry *prometheus.Registry) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	m := metrics.NewWithRegistry(registry)
	checks := map[string]handler.Pinger{}

	st, err := a.openStores(ctx, cfg, checks)
	if err != nil {
		return nil, err
	}

	var redisClient *goredis.Client
	if cfg.CacheBackend == config.CacheBackendRedis {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info().Msg("connected to redis")
	}

	cache, idempotency, err := newCaches(cfg, redisClient)
	if err != nil {
		return nil, err
	}

	publisher := newPublisher(cfg, log)
	a.closers = append(a.closers, func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close event publisher")
		}
	})

	idGen := postgresRepo.NewULIDGenerator()
	summaries := usecase.NewSummaryCache(cache, cfg.SummaryCacheTTL)

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(st.accounts, idGen, m)
	ledgerUC := usecase.NewLedgerUseCase(st.txManager, st.accounts, st.postings, idGen, summaries,
		usecase.WithEventPublisher(publisher),
		usecase.WithLedgerMetrics(m),
		usecase.WithLedgerLogger(log.With().Str("component", "ledger").Logger()),
		usecase.WithLockTimeout(cfg.LedgerLockTimeout),
	)
	queryUC := usecase.NewQueryUseCase(st.accounts, st.postings, summaries, m, log.With().Str("component", "query").Logger())
	reconUC := usecase.NewReconciliationUseCase(st.accounts, st.postings)

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	}

	a.router = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC),
		LedgerHandler:         handler.NewLedgerHandler(accountUC, ledgerUC),
		QueryHandler:          handler.NewQueryHandler(accountUC, queryUC),
		ReconciliationHandler: handler.NewReconciliationHandler(accountUC, reconUC),
		HealthHandler:         handler.NewHealthHandler(checks),
		IdempotencyStore:      idempotency,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           a.rateLimiter,
		Metrics:               m,
		MetricsHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:                log,
	})

	return a, nil
}

func (a *app) openStores(ctx context.Context, cfg *config.Config, checks map[string]handler.Pinger) (*stores, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		a.log.Warn().Msg("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &stores{
			txManager: memory.NewTxManager(store),
			accounts:  memory.NewAccountRepository(store),
			postings:  memory.NewTransactionRepository(store),
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	checks["postgres"] = pool
	a.log.Info().Msg("connected to postgres")

	if cfg.MigrationsPath != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, a.log); err != nil {
			return nil, err
		}
	}

	return &stores{
		txManager: postgresRepo.NewTxManager(pool, cfg.LedgerLockTimeout),
		accounts:  postgresRepo.NewAccountRepository(pool),
		postings:  postgresRepo.NewTransactionRepository(pool),
	}, nil
}

// newCaches picks the summary cache backend. Idempotency keys live in Redis
// when it is available and in process memory otherwise.
func newCaches(cfg *config.Config, client goredis.UniversalClient) (usecase.Cache, usecase.IdempotencyStore, error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		return redisRepo.NewCache(client), redisRepo.NewIdempotencyStore(client), nil
	}

	idemCache, err := memory.NewCache(cfg.MemoryCacheSize)
	if err != nil {
		return nil, nil, err
	}
	idempotency := memory.NewIdempotencyStore(idemCache)

	if cfg.CacheBackend == config.CacheBackendNone {
		return memory.NewNoopCache(), idempotency, nil
	}

	cache, err := memory.NewCache(cfg.MemoryCacheSize)
	if err != nil {
		return nil, nil, err
	}
	return cache, idempotency, nil
}

type closingPublisher interface {
	usecase.EventPublisher
	Close() error
}

func newPublisher(cfg *config.Config, log zerolog.Logger) closingPublisher {
	if cfg.KafkaEnabled() {
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
		return eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	}
	return eventpublisher.NewLogPublisher(log.With().Str("component", "events").Logger())
}
