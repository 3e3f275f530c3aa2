package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/affiliates"
	"github.com/davori/marketplace/internal/auth"
	"github.com/davori/marketplace/internal/config"
	"github.com/davori/marketplace/internal/enrollments"
	"github.com/davori/marketplace/internal/logger"
	"github.com/davori/marketplace/internal/notify"
	"github.com/davori/marketplace/internal/orders"
	"github.com/davori/marketplace/internal/payments"
	"github.com/davori/marketplace/internal/products"
	"github.com/davori/marketplace/internal/ratelimit"
	"github.com/davori/marketplace/internal/telemetry"
	"github.com/davori/marketplace/internal/users"
	"github.com/davori/marketplace/internal/webhooks"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sobe a API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// Initialize OpenTelemetry
	tp, err := telemetry.InitTracer(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	mp, err := telemetry.InitMetrics(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Warn("Error shutting down meter", zap.Error(err))
		}
	}()

	reporter, err := telemetry.NewOTelReporter(mp.Meter("marketplace"), log.With(zap.String("component", "reporter")))
	if err != nil {
		return fmt.Errorf("failed to create error reporter: %w", err)
	}

	// Initialize database
	dbPool, err := initDB(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	notifier := initNotifier(ctx, cfg, log)
	defer func() { _ = notifier.Close() }()

	// Initialize dependencies
	tracer := tp.Tracer(cfg.Telemetry.ServiceName)
	gateway := payments.NewClient(cfg.Pagarme, log.With(zap.String("component", "pagarme")))

	productUseCase := products.NewProductUseCase(products.NewProductRepository(dbPool), log.With(zap.String("component", "products")))
	userUseCase := users.NewUserUseCase(users.NewUserRepository(dbPool), log.With(zap.String("component", "users")))
	affiliateUseCase := affiliates.NewAffiliateUseCase(affiliates.NewAffiliateRepository(dbPool), log.With(zap.String("component", "affiliates")))
	enrollmentUseCase := enrollments.NewEnrollmentUseCase(enrollments.NewEnrollmentRepository(dbPool), notifier, log.With(zap.String("component", "enrollments")))
	orderUseCase := orders.NewOrderUseCase(cfg.Orders(), orders.Dependencies{
		Repository:  orders.NewOrderRepository(dbPool),
		Gateway:     gateway,
		Catalog:     productUseCase,
		Accounts:    userUseCase,
		Affiliates:  affiliateUseCase,
		Enrollments: enrollmentUseCase,
		Reporter:    reporter,
	}, log.With(zap.String("component", "orders")))

	deps := routerDeps{
		serviceName: cfg.Telemetry.ServiceName,
		environment: cfg.Env,
		production:  cfg.IsProduction(),
		logger:      log,
		verifier:    auth.NewVerifier(cfg.JWTAccessSecret),
		products:    products.NewProductHandler(productUseCase, tracer),
		orders:      orders.NewOrderHandler(orderUseCase, tracer),
		enrollments: enrollments.NewEnrollmentHandler(enrollmentUseCase, tracer),
		webhooks: webhooks.NewWebhookHandler(orderUseCase, gateway, reporter,
			log.With(zap.String("component", "webhooks")), tracer, cfg.IsProduction()),
	}

	if redisClient := initRedis(ctx, cfg.RedisURL, log); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		store := ratelimit.NewRedisStore(redisClient)
		deps.generalLimit = ratelimit.Middleware(ratelimit.NewLimiter(store, "general", ratelimit.GeneralLimit, ratelimit.DefaultWindow), log)
		deps.checkoutLimit = ratelimit.Middleware(ratelimit.NewLimiter(store, "checkout", ratelimit.CheckoutLimit, ratelimit.DefaultWindow), log)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Marketplace API listening", zap.String("port", cfg.Port), zap.String("environment", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initDB(ctx context.Context, databaseURL string, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			log.Info("Connected to database")
			return pool, nil
		}
		log.Info("Waiting for database...", zap.Int("attempt", i+1))
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

type closingNotifier interface {
	enrollments.Notifier
	Close() error
}

func initNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger) closingNotifier {
	notifyLog := log.With(zap.String("component", "notify"))
	if len(cfg.KafkaBrokers) == 0 {
		return notify.NewLogNotifier(cfg.FrontendURL, notifyLog)
	}

	if err := notify.EnsureTopic(ctx, cfg.KafkaBrokers, notifyLog); err != nil {
		notifyLog.Warn("Não foi possível garantir o tópico de matrículas", zap.Error(err))
	}
	return notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, notifyLog), cfg.FrontendURL, notifyLog)
}

// initRedis devolve nil quando o Redis não está configurado ou não responde; a API sobe sem rate limit
func initRedis(ctx context.Context, redisURL string, log *zap.Logger) *goredis.Client {
	if redisURL == "" {
		log.Warn("REDIS_URL not set, rate limiting disabled")
		return nil
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		log.Warn("Invalid REDIS_URL, rate limiting disabled", zap.Error(err))
		return nil
	}

	client := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
