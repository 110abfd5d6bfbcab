package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// gatedSink blocks every delivery until release is closed
type gatedSink struct {
	release  chan struct{}
	received chan shared.DomainEvent
	err      error
}

func newGatedSink() *gatedSink {
	return &gatedSink{release: make(chan struct{}), received: make(chan shared.DomainEvent, 16)}
}

func (s *gatedSink) Deliver(ctx context.Context, event shared.DomainEvent) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.received <- event
	return s.err
}

func TestAsyncNotifier_DeliversAfterPublish(t *testing.T) {
	sink := newGatedSink()
	close(sink.release)
	n := NewAsyncNotifier(sink, zap.NewNop())

	event := newConfirmedEvent(t)
	require.NoError(t, n.Publish(context.Background(), event))

	select {
	case got := <-sink.received:
		assert.Equal(t, event.EventID(), got.EventID())
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
	require.NoError(t, n.Close(context.Background()))
	assert.Equal(t, int64(1), n.Stats().Delivered)
}

func TestAsyncNotifier_DropsWhenFull(t *testing.T) {
	sink := newGatedSink()
	n := NewAsyncNotifier(sink, zap.NewNop(), WithBufferSize(1))

	// The worker takes the first event and blocks in Deliver; the second fills the buffer
	require.NoError(t, n.Publish(context.Background(), newConfirmedEvent(t)))
	require.Eventually(t, func() bool { return n.Stats().Queued == 0 }, time.Second, time.Millisecond)
	require.NoError(t, n.Publish(context.Background(), newConfirmedEvent(t)))

	err := n.Publish(context.Background(), newConfirmedEvent(t))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, int64(1), n.Stats().Dropped)

	close(sink.release)
	require.NoError(t, n.Close(context.Background()))
	assert.Equal(t, int64(2), n.Stats().Delivered)
}

func TestAsyncNotifier_PublishAfterClose(t *testing.T) {
	sink := newGatedSink()
	close(sink.release)
	n := NewAsyncNotifier(sink, zap.NewNop())
	require.NoError(t, n.Close(context.Background()))

	assert.ErrorIs(t, n.Publish(context.Background(), newConfirmedEvent(t)), ErrNotifierClosed)
	// Closing twice is harmless
	require.NoError(t, n.Close(context.Background()))
}

func TestAsyncNotifier_CountsFailures(t *testing.T) {
	sink := newGatedSink()
	sink.err = errors.New("broker unavailable")
	close(sink.release)
	n := NewAsyncNotifier(sink, zap.NewNop())

	require.NoError(t, n.Publish(context.Background(), newConfirmedEvent(t)))
	require.NoError(t, n.Close(context.Background()))
	assert.Equal(t, int64(1), n.Stats().Failed)
}

func TestAsyncNotifier_CloseHonoursContext(t *testing.T) {
	sink := newGatedSink()
	n := NewAsyncNotifier(sink, zap.NewNop(), WithDeliverTimeout(time.Minute))
	require.NoError(t, n.Publish(context.Background(), newConfirmedEvent(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Close(ctx), context.DeadlineExceeded)
	close(sink.release)
}
