package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "fulfillment:idempotency:"

// RedisRecordStore implements idempotency.RecordStore using Redis.
// This is suitable for distributed deployments where multiple instances
// need to share idempotency state without touching the primary database.
type RedisRecordStore struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisRecordStore connects to Redis and creates a record store.
// retention is the key TTL in Redis; zero keeps records indefinitely.
func NewRedisRecordStore(cfg RedisConfig, retention time.Duration) (*RedisRecordStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRecordStoreWithClient(client, defaultKeyPrefix, retention), nil
}

// NewRedisRecordStoreWithClient creates a store with an existing Redis client
func NewRedisRecordStoreWithClient(client *redis.Client, keyPrefix string, retention time.Duration) *RedisRecordStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisRecordStore{
		client:    client,
		keyPrefix: keyPrefix,
		retention: retention,
	}
}

func (s *RedisRecordStore) redisKey(scope, key string) string {
	return s.keyPrefix + compositeKey(scope, key)
}

// Insert stores a new record with SETNX
func (s *RedisRecordStore) Insert(ctx context.Context, record *idempotency.Record) error {
	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.redisKey(record.Scope, record.Key), data, s.retention).Result()
	if err != nil {
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	if !ok {
		return shared.ErrAlreadyExists
	}
	return nil
}

// Find loads a record
func (s *RedisRecordStore) Find(ctx context.Context, scope, key string) (*idempotency.Record, error) {
	data, err := s.client.Get(ctx, s.redisKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency record: %w", err)
	}
	record, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return record, nil
}

// Update swaps the record under WATCH if the stored version equals record.Version
func (s *RedisRecordStore) Update(ctx context.Context, record *idempotency.Record) error {
	k := s.redisKey(record.Scope, record.Key)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return shared.ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeRecord(data)
		if err != nil {
			return err
		}
		if current.Version != record.Version {
			return shared.ErrConcurrentModification
		}

		next := *record
		next.Version++
		encoded, err := encodeRecord(&next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, encoded, redis.KeepTTL)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		record.Version++
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return shared.ErrConcurrentModification
	case errors.Is(err, shared.ErrConcurrentModification), errors.Is(err, shared.ErrNotFound):
		return err
	}
	return fmt.Errorf("failed to update idempotency record: %w", err)
}

// Close closes the Redis client
func (s *RedisRecordStore) Close() error {
	return s.client.Close()
}

// Ensure RedisRecordStore implements RecordStore
var _ idempotency.RecordStore = (*RedisRecordStore)(nil)
