package shared

import (
	"github.com/google/uuid"
)

// Actor identifies who performs an operation and on behalf of which tenant.
// It is passed explicitly into every application service call.
type Actor struct {
	ActorID  uuid.UUID
	TenantID uuid.UUID
}

// NewActor validates and builds an Actor.
func NewActor(actorID, tenantID uuid.UUID) (Actor, error) {
	if actorID == uuid.Nil {
		return Actor{}, NewValidationError("INVALID_ACTOR", "Actor ID is required")
	}
	if tenantID == uuid.Nil {
		return Actor{}, NewValidationError("INVALID_TENANT", "Tenant ID is required")
	}
	return Actor{ActorID: actorID, TenantID: tenantID}, nil
}

// IsZero reports whether the actor was never set.
func (a Actor) IsZero() bool {
	return a.ActorID == uuid.Nil && a.TenantID == uuid.Nil
}
