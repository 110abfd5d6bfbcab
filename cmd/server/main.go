package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appidempotency "github.com/erp/fulfillment/internal/application/idempotency"
	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel, err := telemetry.New(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := tel.Bridge(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	meter := tel.Meter(telemetry.MeterName)
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := telemetry.RegisterDBPoolGauges(meter, sqlDB); err != nil {
			log.Warn("Failed to register pool gauges", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	store, closeStore, err := newRecordStore(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	coordinator := appidempotency.NewCoordinator(store,
		appidempotency.WithTTL(cfg.Idempotency.TTL),
		appidempotency.WithLogger(log),
	)

	notifier, closeNotifier := newNotifier(cfg, log)
	if err := telemetry.RegisterNotifierGauges(meter, notifier); err != nil {
		log.Warn("Failed to register notifier gauges", zap.Error(err))
	}

	fulfillmentMetrics, err := telemetry.NewFulfillmentMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create fulfillment metrics", zap.Error(err))
	}

	policy, err := newPolicy(cfg)
	if err != nil {
		log.Fatal("Invalid fulfillment policy", zap.Error(err))
	}

	scope := persistence.NewGormTransactionScope(db.DB)
	confirmService := appfulfillment.NewConfirmService(scope, coordinator, policy,
		appfulfillment.WithNotifier(notifier),
		appfulfillment.WithMetrics(fulfillmentMetrics),
		appfulfillment.WithLogger(log),
	)
	queryService := appfulfillment.NewQueryService(scope)

	httpMetrics, err := middleware.NewHTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Mode:           ginMode(cfg.App.Env),
		TracingEnabled: tel.IsEnabled(),
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		Metrics:        httpMetrics,
	}, log)
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	health := handler.NewHealthHandler(map[string]handler.Pinger{"database": db})
	router.NewRouter(engine, router.WithHealth(health)).
		Register(handler.NewFulfillmentHandler(confirmService, queryService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := closeNotifier(shutdownCtx); err != nil {
		log.Error("Error draining notifier", zap.Error(err))
	}
	if err := closeStore(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newRecordStore selects the idempotency backend
func newRecordStore(cfg *config.Config, db *persistence.Database, log *zap.Logger) (idempotency.RecordStore, func() error, error) {
	switch cfg.Idempotency.Backend {
	case config.IdempotencyBackendRedis:
		store, err := cache.NewRecordStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithRetention(cfg.Idempotency.Retention),
			cache.WithInMemoryFallback(cfg.Idempotency.RedisFallback),
		).CreateStore()
		if err != nil {
			return nil, nil, err
		}
		return store, closerOf(store), nil
	case config.IdempotencyBackendMemory:
		log.Warn("Using in-memory idempotency store; replicas will not share idempotency state")
		store := cache.NewInMemoryRecordStore(cfg.Idempotency.Retention)
		return store, store.Close, nil
	default:
		return persistence.NewGormIdempotencyRecordStore(db.DB), func() error { return nil }, nil
	}
}

func closerOf(v any) func() error {
	if c, ok := v.(io.Closer); ok {
		return c.Close
	}
	return func() error { return nil }
}

// newNotifier publishes confirmations to Kafka when enabled, otherwise to a local log handler
func newNotifier(cfg *config.Config, log *zap.Logger) (*event.AsyncNotifier, func(context.Context) error) {
	var sink event.Sink
	var closeSink func() error
	if cfg.Kafka.Enabled {
		kafkaSink := event.NewKafkaSink(cfg.Kafka, event.NewFulfillmentSerializer())
		sink, closeSink = kafkaSink, kafkaSink.Close
		log.Info("Publishing confirmations to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	} else {
		dispatcher := event.NewDispatcher(log)
		dispatcher.Subscribe(event.NewConfirmationLogHandler(log))
		sink, closeSink = dispatcher, func() error { return nil }
	}

	notifier := event.NewAsyncNotifier(sink, log,
		event.WithBufferSize(cfg.Kafka.BufferSize),
		event.WithDeliverTimeout(cfg.Kafka.WriteTimeout),
	)
	return notifier, func(ctx context.Context) error {
		return errors.Join(notifier.Close(ctx), closeSink())
	}
}

func newPolicy(cfg *config.Config) (appfulfillment.Policy, error) {
	policy := appfulfillment.Policy{
		InvoiceOnFulfillment: cfg.Fulfillment.InvoiceOnFulfillment,
		AllowNegativeStock:   cfg.Inventory.AllowNegativeStock,
		TransactionTimeout:   cfg.Fulfillment.TransactionTimeout,
	}
	if cfg.Fulfillment.PartialInvoicePolicy != "" {
		p, err := appfulfillment.ParsePartialInvoicePolicy(cfg.Fulfillment.PartialInvoicePolicy)
		if err != nil {
			return appfulfillment.Policy{}, err
		}
		policy.PartialInvoice = p
	}
	return policy, policy.Validate()
}

func ginMode(env string) string {
	if env == "production" {
		return "release"
	}
	return "debug"
}
