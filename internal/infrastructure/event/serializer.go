package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
)

// EventSerializer encodes domain events as JSON and decodes them by event type
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

// NewEventSerializer creates a serializer with no known types
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// NewFulfillmentSerializer returns a serializer that knows every fulfillment event
func NewFulfillmentSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(fulfillment.EventTypeOrderConfirmed, func() shared.DomainEvent {
		return &fulfillment.OrderConfirmedEvent{}
	})
	return s
}

// Register maps eventType to a constructor of an empty event to decode into
func (s *EventSerializer) Register(eventType string, newEvent func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = newEvent
}

// IsRegistered reports whether eventType can be decoded
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// Serialize encodes an event
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into a fresh event of eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	newEvent, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %q", eventType)
	}

	event := newEvent()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	if event.EventType() != eventType {
		return nil, fmt.Errorf("payload is %s, header says %s", event.EventType(), eventType)
	}
	return event, nil
}
