package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	httpAdapter "github.com/iho/splitledger/internal/adapter/http"
	"github.com/iho/splitledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/splitledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/splitledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/splitledger/internal/adapter/repository/redis"
	"github.com/iho/splitledger/internal/infrastructure/auth"
	"github.com/iho/splitledger/internal/infrastructure/config"
	"github.com/iho/splitledger/internal/infrastructure/eventpublisher"
	"github.com/iho/splitledger/internal/infrastructure/logger"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
	"github.com/iho/splitledger/internal/infrastructure/postgres"
	"github.com/iho/splitledger/internal/infrastructure/redis"
	"github.com/iho/splitledger/internal/infrastructure/worker"
	"github.com/iho/splitledger/internal/usecase"
)

const limiterIdleTimeout = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Run migrations
	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Optional Redis cache
	redisClient, cache := openCache(ctx, cfg, log, m)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	groupRepo := postgresRepo.NewGroupRepository(pool)
	membershipRepo := postgresRepo.NewMembershipRepository(pool)
	expenseRepo := postgresRepo.NewExpenseRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	settlementRepo := postgresRepo.NewSettlementRepository(pool)
	idempotencyRepo := postgresRepo.NewIdempotencyRepository(pool)
	activityRepo := postgresRepo.NewActivityRepository(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	// Initialize use cases
	userUC := usecase.NewUserUseCase(userRepo, auth.NewBcryptHasher(bcrypt.DefaultCost), jwtManager, idGen, m)
	groupUC := usecase.NewGroupUseCase(txManager, groupRepo, membershipRepo, userRepo, activityRepo, idGen, m)
	expenseUC := usecase.NewExpenseUseCase(txManager, groupRepo, membershipRepo, expenseRepo, activityRepo, idGen, m)
	ledgerUC := usecase.NewLedgerUseCase(membershipRepo, expenseRepo, ledgerRepo)
	settlementUC := usecase.NewSettlementUseCase(txManager, membershipRepo, expenseRepo, settlementRepo, activityRepo, idGen, m)

	var guardCache usecase.IdempotencyCache
	var breaker handler.BreakerState
	if cache != nil {
		guardCache = cache
		breaker = cache
	}
	guard := usecase.NewIdempotencyGuard(txManager, idempotencyRepo, guardCache, cfg.IdempotencyCacheTTL, m)
	// HTTP writes rerun on deadlocks and serialization failures.
	writeGuard := handler.NewRetryingGuard(guard, postgresRepo.NewRetrier(log))

	// Background workers
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		ActivityRepo: activityRepo,
		Publisher:    eventpublisher.NewLogPublisher(log),
		Logger:       log,
		Metrics:      m,
		BatchSize:    cfg.OutboxBatchSize,
		Interval:     cfg.OutboxPollInterval,
	})
	purger := worker.NewIdempotencyPurger(guard, cfg.IdempotencyRetention, cfg.IdempotencyPurgeInterval, log)
	rateLimiter := newRateLimiter(cfg)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	startWorker(workerCtx, &wg, log, "event publisher", publisher.Start)
	startWorker(workerCtx, &wg, log, "idempotency purger", purger.Start)
	if rateLimiter != nil {
		startWorker(workerCtx, &wg, log, "rate limiter cleanup", func(ctx context.Context) error {
			return cleanupLimiters(ctx, rateLimiter, limiterIdleTimeout)
		})
	}
	defer func() {
		cancelWorkers()
		wg.Wait()
	}()

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:       handler.NewAuthHandler(userUC),
		GroupHandler:      handler.NewGroupHandler(groupUC),
		ExpenseHandler:    handler.NewExpenseHandler(expenseUC, writeGuard),
		LedgerHandler:     handler.NewLedgerHandler(ledgerUC),
		SettlementHandler: handler.NewSettlementHandler(settlementUC, writeGuard),
		HealthHandler:     handler.NewHealthHandler(pool, redisClient, breaker),
		TokenVerifier:     jwtManager,
		RateLimiter:       rateLimiter,
		HTTPMetrics:       apimiddleware.NewHTTPMetrics(reg),
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:            log,
	})

	// Create server
	server := &http.Server{
		Addr:         serverAddr(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// openCache connects to Redis when configured. A configured but unreachable
// Redis is logged and skipped: the guard falls back to Postgres.
func openCache(ctx context.Context, cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*goredis.Client, *redisRepo.IdempotencyCache) {
	if cfg.RedisURL == "" {
		log.Info().Msg("redis not configured, idempotency cache disabled")
		return nil, nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL, cfg.DatabaseConnectTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, idempotency cache disabled")
		return nil, nil
	}
	log.Info().Msg("connected to redis")

	return client, redisRepo.NewIdempotencyCache(client, redisRepo.BreakerConfig{}, log, m)
}

func newRateLimiter(cfg *config.Config) *apimiddleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

func cleanupLimiters(ctx context.Context, rl *apimiddleware.RateLimiter, maxIdle time.Duration) error {
	ticker := time.NewTicker(maxIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rl.CleanupLimiters(maxIdle)
		}
	}
}

func startWorker(ctx context.Context, wg *sync.WaitGroup, log zerolog.Logger, name string, fn func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("worker", name).Msg("worker stopped")
		}
	}()
}

func serverAddr(port string) string {
	return fmt.Sprintf(":%s", port)
}
