package event

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Message headers written on every event
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderTenantID      = "tenant_id"
	HeaderSchemaVersion = "schema_version"
)

// messageWriter is the subset of *kafka.Writer the sink uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events to a Kafka topic, keyed by aggregate ID so one
// order's events stay on one partition
type KafkaSink struct {
	writer     messageWriter
	serializer *EventSerializer
}

// NewKafkaSink creates a sink writing to cfg.Topic
func NewKafkaSink(cfg config.KafkaConfig, serializer *EventSerializer) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.WriteTimeout,
	}
	return newKafkaSink(writer, serializer)
}

func newKafkaSink(writer messageWriter, serializer *EventSerializer) *KafkaSink {
	return &KafkaSink{writer: writer, serializer: serializer}
}

// Deliver writes one event
func (s *KafkaSink) Deliver(ctx context.Context, event shared.DomainEvent) error {
	msg, err := s.message(event)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func (s *KafkaSink) message(event shared.DomainEvent) (kafka.Message, error) {
	payload, err := s.serializer.Serialize(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType())},
			{Key: HeaderEventID, Value: []byte(event.EventID().String())},
			{Key: HeaderTenantID, Value: []byte(event.TenantID().String())},
			{Key: HeaderSchemaVersion, Value: []byte(strconv.Itoa(event.SchemaVersion()))},
		},
	}, nil
}

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads events from a topic and hands them to a Sink, usually a Dispatcher.
// Offsets are committed after the sink returns; undecodable messages and handler
// failures are logged and committed so one bad message cannot stall the partition.
type KafkaConsumer struct {
	reader     messageReader
	serializer *EventSerializer
	sink       Sink
	logger     *zap.Logger
	backoff    time.Duration
}

// NewKafkaConsumer creates a group consumer for cfg.Topic
func NewKafkaConsumer(cfg config.KafkaConfig, serializer *EventSerializer, sink Sink, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	return newKafkaConsumer(reader, serializer, sink, logger)
}

func newKafkaConsumer(reader messageReader, serializer *EventSerializer, sink Sink, logger *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		serializer: serializer,
		sink:       sink,
		logger:     logger,
		backoff:    time.Second,
	}
}

// Run consumes until ctx is cancelled
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Kafka consumer stopped")
				return nil
			}
			c.logger.Warn("Error fetching message", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("Error committing message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// Close closes the reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) {
	eventType := header(msg, HeaderEventType)
	event, err := c.serializer.Deserialize(eventType, msg.Value)
	if err != nil {
		c.logger.Error("Skipping undecodable message",
			zap.String("event_type", eventType),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}
	if err := c.sink.Deliver(ctx, event); err != nil {
		c.logger.Error("Event handling failed",
			zap.String("event_type", eventType),
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
