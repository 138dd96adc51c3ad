package events

import (
	"sync"

	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
)

const defaultBufferSize = 100

// ChannelEventBus implements events.Bus with a buffered channel. Emit never
// blocks: when the buffer is full the event is dropped and a warning logged.
type ChannelEventBus struct {
	channel chan events.Event
	log     vclog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewChannelEventBus creates a bus with the given buffer size (default 100
// when non-positive). Panics if log is nil.
func NewChannelEventBus(bufferSize int, log vclog.Logger) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}
	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit sends an event without blocking. Events emitted after Close are discarded.
func (c *ChannelEventBus) Emit(event events.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.channel <- event:
	default:
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
}

// GetChannel returns the read side of the bus for in-process listeners.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Close closes the channel, signalling listeners that no more events follow.
func (c *ChannelEventBus) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.channel)
		c.mu.Unlock()
		c.log.Debugf("Closed ChannelEventBus channel.")
	})
}

var _ events.Bus = (*ChannelEventBus)(nil)
