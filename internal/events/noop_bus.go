package events

import "github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"

// NoOpEventBus discards every event. It is the default when no bus is configured
// so components can emit unconditionally.
type NoOpEventBus struct{}

// NewNoOpEventBus creates a new NoOpEventBus.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

// Emit does nothing.
func (n *NoOpEventBus) Emit(event events.Event) {}

var _ events.Bus = (*NoOpEventBus)(nil)
