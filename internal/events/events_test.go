package events_test

import (
	"context"
	"testing"
	"time"

	intEvents "github.com/gxo-labs/visacheck/internal/events"
	"github.com/gxo-labs/visacheck/internal/logger"
	"github.com/gxo-labs/visacheck/internal/metrics"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEventBus_DropsWhenFull(t *testing.T) {
	bus := intEvents.NewChannelEventBus(1, logger.NewDiscardLogger())
	defer bus.Close()

	bus.Emit(events.Event{Type: events.SelectionChanged})
	assert.NotPanics(t, func() { bus.Emit(events.Event{Type: events.RulesLoaded}) })

	first := <-bus.GetChannel()
	assert.Equal(t, events.SelectionChanged, first.Type)
	select {
	case ev := <-bus.GetChannel():
		t.Fatalf("expected dropped event, got %v", ev.Type)
	default:
	}
}

func TestChannelEventBus_EmitAfterCloseIsIgnored(t *testing.T) {
	bus := intEvents.NewChannelEventBus(4, logger.NewDiscardLogger())
	bus.Close()
	bus.Close()
	assert.NotPanics(t, func() { bus.Emit(events.Event{Type: events.RulesLoaded}) })
}

func TestMetricsEventListener_CountsEvents(t *testing.T) {
	log := logger.NewDiscardLogger()
	bus := intEvents.NewChannelEventBus(8, log)
	m := metrics.New(prometheus.NewRegistry())
	listener := intEvents.NewMetricsEventListener(bus, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		listener.Start(ctx)
		close(done)
	}()

	bus.Emit(events.Event{Type: events.SelectionChanged, Payload: map[string]interface{}{"transition": "select_nationality"}})
	bus.Emit(events.Event{Type: events.SelectionChanged, Payload: map[string]interface{}{"transition": "select_nationality"}})
	bus.Emit(events.Event{Type: events.PersistenceFailed, Payload: map[string]interface{}{"op": "set"}})
	bus.Emit(events.Event{Type: events.StateHydrated})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after bus close")
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SelectionTransitions.WithLabelValues("select_nationality")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistenceFailures.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hydrations))
}

func TestNewMetricsEventListener_PanicsOnNilDeps(t *testing.T) {
	require.Panics(t, func() { intEvents.NewMetricsEventListener(nil, nil, nil) })
}
