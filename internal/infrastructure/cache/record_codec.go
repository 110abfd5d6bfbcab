package cache

import (
	"encoding/json"
	"time"

	"github.com/erp/fulfillment/internal/domain/idempotency"
	"github.com/google/uuid"
)

// storedRecord is the serialized form of an idempotency record
type storedRecord struct {
	ID                 uuid.UUID                     `json:"id"`
	Scope              string                        `json:"scope"`
	Key                string                        `json:"key"`
	Status             idempotency.Status            `json:"status"`
	RequestFingerprint string                        `json:"request_fingerprint,omitempty"`
	Response           *idempotency.ResponseEnvelope `json:"response,omitempty"`
	ExpiresAt          time.Time                     `json:"expires_at"`
	Version            int                           `json:"version"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
}

func encodeRecord(r *idempotency.Record) ([]byte, error) {
	return json.Marshal(storedRecord{
		ID:                 r.ID,
		Scope:              r.Scope,
		Key:                r.Key,
		Status:             r.Status,
		RequestFingerprint: r.RequestFingerprint,
		Response:           r.Response,
		ExpiresAt:          r.ExpiresAt,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	})
}

func decodeRecord(data []byte) (*idempotency.Record, error) {
	var s storedRecord
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &idempotency.Record{
		ID:                 s.ID,
		Scope:              s.Scope,
		Key:                s.Key,
		Status:             s.Status,
		RequestFingerprint: s.RequestFingerprint,
		Response:           s.Response,
		ExpiresAt:          s.ExpiresAt,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}, nil
}

func compositeKey(scope, key string) string {
	return scope + "|" + key
}
