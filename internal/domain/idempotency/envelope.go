package idempotency

import (
	"encoding/json"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// CurrentEnvelopeVersion is the envelope layout written by this build
const CurrentEnvelopeVersion = 1

// ResponseEnvelope is the stored snapshot of a completed response.
// Body holds the exact bytes that were returned to the caller.
type ResponseEnvelope struct {
	Schema     string          `json:"schema"`
	Version    int             `json:"version"`
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// NewResponseEnvelope wraps a response body under a schema tag
func NewResponseEnvelope(schema string, statusCode int, body []byte) (*ResponseEnvelope, error) {
	if schema == "" {
		return nil, shared.NewValidationError("INVALID_ENVELOPE", "Envelope schema is required")
	}
	if !json.Valid(body) {
		return nil, shared.NewValidationError("INVALID_ENVELOPE", "Envelope body must be valid JSON")
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	return &ResponseEnvelope{
		Schema:     schema,
		Version:    CurrentEnvelopeVersion,
		StatusCode: statusCode,
		Body:       cp,
	}, nil
}

// Marshal encodes the envelope for storage
func (e *ResponseEnvelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope decodes a stored envelope and checks it is readable by this build
func UnmarshalEnvelope(data []byte) (*ResponseEnvelope, error) {
	var env ResponseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if env.Version < 1 || env.Version > CurrentEnvelopeVersion {
		return nil, fmt.Errorf("unsupported response envelope version %d", env.Version)
	}
	return &env, nil
}
