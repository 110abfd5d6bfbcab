package idempotency

import (
	"strings"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() Scope {
	return Scope{TenantID: uuid.New(), Operation: "fulfillment.confirm", EntityID: uuid.New()}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.False(t, Status("DONE").IsValid())
}

func TestScope_String(t *testing.T) {
	s := testScope()
	assert.Equal(t, s.TenantID.String()+":fulfillment.confirm:"+s.EntityID.String(), s.String())
	assert.Error(t, Scope{Operation: "x"}.Validate())
}

func TestValidateKey(t *testing.T) {
	assert.Error(t, ValidateKey(""))
	assert.Error(t, ValidateKey(strings.Repeat("k", MaxKeyLength+1)))
	assert.NoError(t, ValidateKey("order-42-confirm"))
}

func TestRecord_Lifecycle(t *testing.T) {
	now := time.Now()
	rec, err := NewProcessingRecord(testScope(), "key-1", "fp", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.False(t, rec.CanReacquire(now))

	t.Run("expired processing can be reacquired", func(t *testing.T) {
		later := now.Add(2 * time.Hour)
		assert.True(t, rec.CanReacquire(later))
	})

	env, err := NewResponseEnvelope("fulfillment.confirm.response", 200, []byte(`{"ok":true}`))
	require.NoError(t, err)
	require.NoError(t, rec.Complete(env, now))
	assert.Equal(t, StatusCompleted, rec.Status)

	t.Run("completed is terminal", func(t *testing.T) {
		assert.False(t, rec.CanReacquire(now.Add(48*time.Hour)))
		assert.ErrorIs(t, rec.Fail(now), ErrNotHeld)
		assert.ErrorIs(t, rec.Reacquire("fp", time.Hour, now), ErrInProgress)
	})
}

func TestRecord_FailThenReacquire(t *testing.T) {
	now := time.Now()
	rec, err := NewProcessingRecord(testScope(), "key-2", "fp-1", time.Hour, now)
	require.NoError(t, err)
	require.NoError(t, rec.Fail(now))
	assert.True(t, rec.CanReacquire(now))

	require.NoError(t, rec.Reacquire("fp-2", time.Hour, now.Add(time.Minute)))
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Equal(t, "fp-2", rec.RequestFingerprint)
	assert.Nil(t, rec.Response)
}

func TestRecord_FingerprintMatches(t *testing.T) {
	rec := &Record{RequestFingerprint: "abc"}
	assert.True(t, rec.FingerprintMatches("abc"))
	assert.False(t, rec.FingerprintMatches("xyz"))
	assert.True(t, (&Record{}).FingerprintMatches("xyz"))
}

func TestNewProcessingRecord_InvalidKey(t *testing.T) {
	_, err := NewProcessingRecord(testScope(), "", "", time.Hour, time.Now())
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestResponseEnvelope_RoundTripKeepsBodyBytes(t *testing.T) {
	body := []byte(`{"b":2,"a":1}`)
	env, err := NewResponseEnvelope("fulfillment.confirm.response", 200, body)
	require.NoError(t, err)

	data, err := env.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalEnvelope(data)
	require.NoError(t, err)

	assert.Equal(t, "fulfillment.confirm.response", decoded.Schema)
	assert.Equal(t, CurrentEnvelopeVersion, decoded.Version)
	assert.Equal(t, body, []byte(decoded.Body))
}

func TestResponseEnvelope_Rejects(t *testing.T) {
	_, err := NewResponseEnvelope("", 200, []byte(`{}`))
	assert.Error(t, err)
	_, err = NewResponseEnvelope("s", 200, []byte(`{not json`))
	assert.Error(t, err)
	_, err = UnmarshalEnvelope([]byte(`{"schema":"s","version":99,"status_code":200,"body":{}}`))
	assert.Error(t, err)
}
