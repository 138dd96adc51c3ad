package events

import "time"

// EventType represents the type of a visacheck event.
type EventType string

// Standard visacheck Event Types
const (
	RulesLoaded       EventType = "RulesLoaded"       // A nationality rule table was materialized
	RulesLoadFailed   EventType = "RulesLoadFailed"   // A loader returned an error
	SelectionChanged  EventType = "SelectionChanged"  // A selection transition was applied
	StateHydrated     EventType = "StateHydrated"     // Initial persistence load completed
	PersistenceFailed EventType = "PersistenceFailed" // A storage read or write failed
)

// Event represents a significant occurrence within the checker core.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`
	// Timestamp marks when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// SessionID identifies the checker session that produced the event, if any.
	SessionID string `json:"session_id,omitempty"`
	// Nationality is the nationality code in context, if applicable.
	Nationality string `json:"nationality,omitempty"`
	// Payload contains event-specific data.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus defines the interface for publishing events.
type Bus interface {
	// Emit publishes an event to the bus. Implementations must not block the
	// caller, since events are emitted from inside selection transitions.
	Emit(event Event)
}
