package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate and published after commit
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
	SchemaVersion() int
}

// EventHandler reacts to published domain events.
// An empty EventTypes subscribes to every type.
type EventHandler interface {
	EventTypes() []string
	Handle(ctx context.Context, event DomainEvent) error
}

// BaseDomainEvent carries the envelope metadata. Concrete events embed it
// and add their payload fields next to it.
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	At        time.Time `json:"timestamp"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	Kind      string    `json:"aggregate_type"`
	Tenant    uuid.UUID `json:"tenant_id"`
	Schema    int       `json:"schema_version"`
}

// NewBaseDomainEvent stamps a fresh id and the current time; schemaVersion below 1 becomes 1
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID, tenantID uuid.UUID, schemaVersion int) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		At:        time.Now(),
		Aggregate: aggregateID,
		Kind:      aggregateType,
		Tenant:    tenantID,
		Schema:    max(schemaVersion, 1),
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate }
func (e *BaseDomainEvent) AggregateType() string  { return e.Kind }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.Tenant }

// SchemaVersion reports 1 for events decoded without a version
func (e *BaseDomainEvent) SchemaVersion() int { return max(e.Schema, 1) }
