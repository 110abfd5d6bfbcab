package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func setupCoordinator(t *testing.T) (*Coordinator, *cache.InMemoryRecordStore, *fakeClock, idempotency.Scope) {
	t.Helper()
	store := cache.NewInMemoryRecordStore(0)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCoordinator(store, WithTTL(time.Minute), WithClock(clock.Now))
	scope := idempotency.Scope{TenantID: uuid.New(), Operation: "fulfillment.confirm", EntityID: uuid.New()}
	return c, store, clock, scope
}

func envelope(t *testing.T, body string) *idempotency.ResponseEnvelope {
	t.Helper()
	env, err := idempotency.NewResponseEnvelope("test.response", 200, []byte(body))
	require.NoError(t, err)
	return env
}

func TestFingerprint_IsStable(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte(`{"a":1}`)), Fingerprint([]byte(`{"a":1}`)))
	assert.NotEqual(t, Fingerprint([]byte(`{"a":1}`)), Fingerprint([]byte(`{"a":2}`)))
	assert.Len(t, Fingerprint(nil), 64)
}

func TestCoordinator_FirstAcquireProceeds(t *testing.T) {
	c, store, _, scope := setupCoordinator(t)
	ctx := context.Background()

	acq, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	assert.Equal(t, DecisionProceed, acq.Decision)
	assert.Nil(t, acq.Envelope)

	record, err := store.Find(ctx, scope.String(), "k")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StatusProcessing, record.Status)
}

func TestCoordinator_CompletedKeyReplays(t *testing.T) {
	c, _, _, scope := setupCoordinator(t)
	ctx := context.Background()

	held, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, c.Complete(ctx, held, envelope(t, `{"ok":true}`)))

	acq, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	assert.Equal(t, DecisionReplay, acq.Decision)
	require.NotNil(t, acq.Envelope)
	assert.Equal(t, `{"ok":true}`, string(acq.Envelope.Body))
	assert.Equal(t, 200, acq.Envelope.StatusCode)
}

func TestCoordinator_CompletedKeyWithDifferentBody(t *testing.T) {
	c, _, _, scope := setupCoordinator(t)
	ctx := context.Background()

	held, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, c.Complete(ctx, held, envelope(t, `{}`)))

	_, err = c.Acquire(ctx, scope, "k", "other")
	assert.ErrorIs(t, err, idempotency.ErrKeyReused)
}

func TestCoordinator_InFlightKeyConflicts(t *testing.T) {
	c, _, _, scope := setupCoordinator(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)

	_, err = c.Acquire(ctx, scope, "k", "fp")
	assert.ErrorIs(t, err, idempotency.ErrInProgress)
	assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))
}

func TestCoordinator_ExpiredAttemptIsReacquired(t *testing.T) {
	c, store, clock, scope := setupCoordinator(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Minute)
	acq, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	assert.Equal(t, DecisionProceed, acq.Decision)

	record, err := store.Find(ctx, scope.String(), "k")
	require.NoError(t, err)
	assert.True(t, clock.now.Add(time.Minute).Equal(record.ExpiresAt))
}

func TestCoordinator_FailedKeyMayRetryWithNewBody(t *testing.T) {
	c, store, _, scope := setupCoordinator(t)
	ctx := context.Background()

	held, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, c.Fail(ctx, held))

	acq, err := c.Acquire(ctx, scope, "k", "fp-2")
	require.NoError(t, err)
	assert.Equal(t, DecisionProceed, acq.Decision)

	record, err := store.Find(ctx, scope.String(), "k")
	require.NoError(t, err)
	assert.Equal(t, "fp-2", record.RequestFingerprint)
	assert.Equal(t, idempotency.StatusProcessing, record.Status)
}

func TestCoordinator_CompleteRequiresHeldKey(t *testing.T) {
	c, _, _, scope := setupCoordinator(t)
	ctx := context.Background()

	missing := &Acquisition{Decision: DecisionProceed, Scope: scope, Key: "missing", version: 1}
	assert.ErrorIs(t, c.Complete(ctx, missing, envelope(t, `{}`)), shared.ErrNotFound)
	assert.ErrorIs(t, c.Fail(ctx, nil), idempotency.ErrNotHeld)

	held, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, c.Complete(ctx, held, envelope(t, `{}`)))

	assert.ErrorIs(t, c.Fail(ctx, held), idempotency.ErrNotHeld)

	replay, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Fail(ctx, replay), idempotency.ErrNotHeld)
}

func TestCoordinator_ExpiredAttemptCannotFinishOverSuccessor(t *testing.T) {
	c, store, clock, scope := setupCoordinator(t)
	ctx := context.Background()

	stale, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Minute)
	current, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)

	err = c.Complete(ctx, stale, envelope(t, `{"from":"stale"}`))
	assert.ErrorIs(t, err, idempotency.ErrLeaseLost)
	assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))
	assert.ErrorIs(t, c.Fail(ctx, stale), idempotency.ErrLeaseLost)

	record, err := store.Find(ctx, scope.String(), "k")
	require.NoError(t, err)
	assert.Equal(t, idempotency.StatusProcessing, record.Status)

	require.NoError(t, c.Complete(ctx, current, envelope(t, `{"from":"current"}`)))
	replay, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)
	assert.Equal(t, `{"from":"current"}`, string(replay.Envelope.Body))
}

func TestCoordinator_ScopesAreIndependent(t *testing.T) {
	c, _, _, scope := setupCoordinator(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, scope, "k", "fp")
	require.NoError(t, err)

	other := scope
	other.EntityID = uuid.New()
	acq, err := c.Acquire(ctx, other, "k", "fp")
	require.NoError(t, err)
	assert.Equal(t, DecisionProceed, acq.Decision)
}

func TestCoordinator_RejectsInvalidKey(t *testing.T) {
	c, _, _, scope := setupCoordinator(t)

	_, err := c.Acquire(context.Background(), scope, "", "fp")
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}
