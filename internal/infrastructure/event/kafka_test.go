package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader serves queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	if len(r.queue) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaSink_WritesKeyedMessageWithHeaders(t *testing.T) {
	writer := &fakeWriter{}
	sink := newKafkaSink(writer, NewFulfillmentSerializer())
	event := newConfirmedEvent(t)

	require.NoError(t, sink.Deliver(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, event.OrderID.String(), string(msg.Key))
	assert.Equal(t, fulfillment.EventTypeOrderConfirmed, header(msg, HeaderEventType))
	assert.Equal(t, event.EventID().String(), header(msg, HeaderEventID))
	assert.Equal(t, event.TenantID().String(), header(msg, HeaderTenantID))
	assert.Equal(t, "1", header(msg, HeaderSchemaVersion))
	assert.Contains(t, string(msg.Value), `"order_number":"FO-0001"`)

	require.NoError(t, sink.Close())
	assert.True(t, writer.closed)
}

func TestKafkaSink_WrapsWriteErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	sink := newKafkaSink(writer, NewFulfillmentSerializer())

	err := sink.Deliver(context.Background(), newConfirmedEvent(t))
	assert.ErrorIs(t, err, writer.err)
}

func TestKafkaConsumer_DispatchesAndCommits(t *testing.T) {
	writer := &fakeWriter{}
	serializer := NewFulfillmentSerializer()
	sink := newKafkaSink(writer, serializer)
	event := newConfirmedEvent(t)
	require.NoError(t, sink.Deliver(context.Background(), event))

	garbage := kafka.Message{
		Value:   []byte("not json"),
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(fulfillment.EventTypeOrderConfirmed)}},
	}
	reader := newFakeReader(writer.messages[0], garbage)

	dispatcher := NewDispatcher(zap.NewNop())
	handler := newTestHandler(fulfillment.EventTypeOrderConfirmed)
	dispatcher.Subscribe(NewIdempotentHandler(handler, NewInMemoryProcessedStore(), 0, zap.NewNop()))

	consumer := newKafkaConsumer(reader, serializer, dispatcher, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, handler.count())
	assert.Len(t, reader.committed, 2)
}
