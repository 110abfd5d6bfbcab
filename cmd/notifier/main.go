// Command notifier consumes order confirmation events from Kafka and hands
// them to downstream handlers exactly once per event id.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	dedupTTL := flag.Duration("dedup-ttl", 24*time.Hour, "How long a processed event id is remembered")
	useRedis := flag.Bool("redis", true, "Remember processed event ids in Redis instead of memory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name + "-notifier",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("Kafka is not configured; set kafka.enabled and kafka.brokers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processed, closeProcessed := newProcessedStore(ctx, cfg, *useRedis, log)
	defer closeProcessed()

	dispatcher := event.NewDispatcher(log)
	dispatcher.Subscribe(event.NewIdempotentHandler(event.NewConfirmationLogHandler(log), processed, *dedupTTL, log))

	consumer := event.NewKafkaConsumer(cfg.Kafka, event.NewFulfillmentSerializer(), dispatcher, log)
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Error("Error closing consumer", zap.Error(err))
		}
	}()

	log.Info("Notifier starting",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group_id", cfg.Kafka.GroupID),
	)
	if err := consumer.Run(ctx); err != nil {
		log.Error("Consumer stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Notifier exited gracefully")
}

func newProcessedStore(ctx context.Context, cfg *config.Config, useRedis bool, log *zap.Logger) (event.ProcessedStore, func()) {
	if !useRedis {
		log.Warn("Using in-memory processed store; redeliveries after restart will be handled again")
		return event.NewInMemoryProcessedStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatal("Redis unavailable", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}
	return event.NewRedisProcessedStore(client, ""), func() {
		_ = client.Close()
	}
}
