package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/localmart/booking-engine/internal/api"
	"github.com/localmart/booking-engine/internal/booking"
	"github.com/localmart/booking-engine/internal/config"
	"github.com/localmart/booking-engine/internal/db"
	"github.com/localmart/booking-engine/internal/logging"
	"github.com/localmart/booking-engine/internal/notify"
	"github.com/localmart/booking-engine/internal/payment"
	redisclient "github.com/localmart/booking-engine/internal/redis"
	"github.com/localmart/booking-engine/internal/vendor"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	catalog := vendor.NewPgCatalog(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	var payments booking.PaymentPort
	if cfg.StripeSecretKey != "" {
		payments = payment.NewStripeGateway(cfg.StripeSecretKey, logger)
		logger.Info("payments via Stripe")
	} else {
		payments = payment.NewLogGateway(logger)
		logger.Warn("no Stripe key configured, payments go to the log")
	}

	var notifier booking.NotificationPort
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := kafkaNotifier.Close(); err != nil {
				logger.Warn("error closing kafka writer", zap.Error(err))
			}
		}()
		notifier = kafkaNotifier
		logger.Info("notifications via Kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	} else {
		notifier = notify.NewLogNotifier(logger)
		logger.Warn("no Kafka brokers configured, notifications go to the log")
	}

	pricing := booking.NewPricingEngine(booking.PricingConfig{
		TaxRateBps:           cfg.TaxRateBps,
		ServiceFeeBps:        cfg.ServiceFeeBps,
		FirstTimeDiscountBps: cfg.FirstTimeDiscountBps,
		FirstTimeDiscountCap: booking.Money(cfg.FirstTimeDiscountCap),
		EarlyBirdDiscountBps: cfg.EarlyBirdDiscountBps,
		EarlyBirdMinNotice:   cfg.EarlyBirdMinNotice,
		Currency:             cfg.Currency,
	})

	engine := booking.NewEngine(repo, catalog, payments, notifier, pricing, locker, booking.SystemClock(), logger)

	router := api.NewRouter(api.RouterConfig{
		Engine:  engine,
		PgPool:  pgPool,
		Redis:   rdb,
		Logger:  logger,
		Env:     cfg.Env,
		Version: version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	case <-rootCtx.Done():
		logger.Info("shutting down api-server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}
}
