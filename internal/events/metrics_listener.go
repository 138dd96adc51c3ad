package events

import (
	"context"

	"github.com/gxo-labs/visacheck/internal/metrics"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
)

// MetricsEventListener consumes a ChannelEventBus and turns selection and
// persistence events into Prometheus samples.
type MetricsEventListener struct {
	bus     *ChannelEventBus
	log     vclog.Logger
	metrics *metrics.Metrics
}

// NewMetricsEventListener creates a listener. All dependencies are required.
func NewMetricsEventListener(bus *ChannelEventBus, m *metrics.Metrics, log vclog.Logger) *MetricsEventListener {
	if bus == nil || m == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, Metrics, and Logger")
	}
	return &MetricsEventListener{
		bus:     bus,
		log:     log.With("component", "MetricsEventListener"),
		metrics: m,
	}
}

// Start consumes events until the bus is closed or ctx is done. Run it in its own goroutine.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

func (l *MetricsEventListener) handleEvent(event events.Event) {
	switch event.Type {
	case events.SelectionChanged:
		transition, _ := event.Payload["transition"].(string)
		if transition == "" {
			transition = "unknown"
		}
		l.metrics.SelectionTransitions.WithLabelValues(transition).Inc()
	case events.PersistenceFailed:
		op, _ := event.Payload["op"].(string)
		if op == "" {
			op = "unknown"
		}
		l.metrics.PersistenceFailures.WithLabelValues(op).Inc()
	case events.StateHydrated:
		l.metrics.Hydrations.Inc()
	}
}
