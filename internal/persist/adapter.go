// Package persist mirrors the persisted part of the selection state into a
// key-value backend. Reads happen once at startup; writes are queued and
// applied in order by a single worker so the caller never waits on storage.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gxo-labs/visacheck/internal/logger"
	"github.com/gxo-labs/visacheck/internal/tracing"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/selection"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const defaultOpTimeout = 5 * time.Second

// Adapter reads and writes the persisted selection through a storage.Backend.
// Storage failures never reach the caller: reads fall back to defaults and
// writes are logged and dropped.
type Adapter struct {
	backend   storage.Backend
	countries country.Registry
	log       vclog.Logger
	bus       events.Bus
	tracer    trace.Tracer
	session   string
	opTimeout time.Duration

	mu      sync.Mutex
	queue   []op
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// op is one queued write, or a flush barrier when barrier is non-nil.
type op struct {
	field   selection.Field
	state   selection.Persisted
	barrier chan struct{}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger for storage failures.
func WithLogger(log vclog.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// WithEventBus sets the bus receiving PersistenceFailed events.
func WithEventBus(bus events.Bus) Option {
	return func(a *Adapter) {
		if bus != nil {
			a.bus = bus
		}
	}
}

// WithTracer sets the tracer used around the initial load.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Adapter) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithSessionID tags emitted events.
func WithSessionID(id string) Option {
	return func(a *Adapter) { a.session = id }
}

// WithOpTimeout bounds each queued storage write.
func WithOpTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.opTimeout = d
		}
	}
}

// NewAdapter creates an adapter and starts its write worker. Call Close to
// drain and stop it.
func NewAdapter(backend storage.Backend, countries country.Registry, opts ...Option) *Adapter {
	if backend == nil || countries == nil {
		panic("persist.NewAdapter requires a non-nil backend and country registry")
	}
	a := &Adapter{
		backend:   backend,
		countries: countries,
		log:       logger.NewDiscardLogger(),
		bus:       noopBus{},
		tracer:    tracing.GetTracer(),
		opTimeout: defaultOpTimeout,
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "PersistenceAdapter")
	go a.run()
	return a
}

type noopBus struct{}

func (noopBus) Emit(events.Event) {}

// LoadInitial reads the four persisted keys concurrently and returns the
// validated selection. Invalid values are discarded; values that depend on
// an invalid nationality are discarded with it. Any read error yields the
// defaults.
func (a *Adapter) LoadInitial(ctx context.Context) selection.Persisted {
	ctx, span := a.tracer.Start(ctx, "persist.LoadInitial")
	defer span.End()

	defaults := selection.Initial().Persisted()

	var raw [4]struct {
		value string
		ok    bool
	}
	keys := [4]string{KeyNationality, KeyDestination, KeyMode, KeyDestinations}

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			v, ok, err := a.backend.Get(gctx, key)
			if err != nil {
				return vcerrors.NewStorageError("get", key, err)
			}
			raw[i].value, raw[i].ok = v, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err)
		a.log.Errorf("Failed to load saved selections: %v", err)
		a.emitFailure("get", "", err)
		return defaults
	}

	out := defaults
	if raw[2].ok {
		if m := selection.Mode(raw[2].value); m.IsValid() {
			out.Mode = m
		} else {
			a.log.Warnf("Ignoring saved mode '%s'", raw[2].value)
		}
	}

	if !raw[0].ok {
		return out
	}
	if !a.countries.IsValidCode(raw[0].value) {
		a.log.Warnf("Ignoring saved nationality '%s' and its dependent selections", raw[0].value)
		return out
	}
	out.NationalityCode = raw[0].value

	if raw[1].ok {
		if a.countries.IsValidCode(raw[1].value) {
			out.DestinationCode = raw[1].value
		} else {
			a.log.Warnf("Ignoring saved destination '%s'", raw[1].value)
		}
	}

	if raw[3].ok && out.Mode == selection.ModeCompare {
		out.DestinationCodes = a.decodeDestinations(raw[3].value, out.NationalityCode)
	}

	span.SetAttributes(
		attribute.String("visacheck.mode", string(out.Mode)),
		attribute.Int("visacheck.compare_destinations", len(out.DestinationCodes)),
	)
	return out
}

// decodeDestinations parses the saved compare list and keeps only codes that
// satisfy the list invariants. Malformed JSON yields an empty list.
func (a *Adapter) decodeDestinations(value, nationality string) []string {
	var codes []string
	if err := json.Unmarshal([]byte(value), &codes); err != nil {
		a.log.Warnf("Ignoring malformed saved comparison destinations: %v", err)
		return []string{}
	}
	out := make([]string, 0, selection.MaxCompareDestinations)
	for _, code := range codes {
		if len(out) == selection.MaxCompareDestinations {
			break
		}
		if code == nationality || !a.countries.IsValidCode(code) || slices.Contains(out, code) {
			continue
		}
		out = append(out, code)
	}
	return out
}

// Save queues a write of field taken from state. It returns immediately;
// writes are applied in the order they were queued. Saves after Close are dropped.
func (a *Adapter) Save(field selection.Field, state selection.Persisted) {
	if KeyFor(field) == "" {
		a.log.Warnf("Ignoring save of unknown field '%s'", field)
		return
	}
	a.enqueue(op{field: field, state: state})
}

func (a *Adapter) enqueue(o op) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.log.Debugf("Adapter closed, dropping queued operation for '%s'", o.field)
		return false
	}
	a.queue = append(a.queue, o)
	// wake is only closed under mu, so the send cannot race with Close.
	select {
	case a.wake <- struct{}{}:
	default:
	}
	a.mu.Unlock()
	return true
}

// Flush waits until every save queued before the call has been applied.
func (a *Adapter) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !a.enqueue(op{barrier: barrier}) {
		return nil
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting saves and waits for the queue to drain.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.wake)
	}
	a.mu.Unlock()

	select {
	case <-a.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) run() {
	defer close(a.stopped)
	for {
		_, open := <-a.wake
		for {
			a.mu.Lock()
			if len(a.queue) == 0 {
				a.mu.Unlock()
				break
			}
			next := a.queue[0]
			a.queue = a.queue[1:]
			a.mu.Unlock()
			a.apply(next)
		}
		if !open {
			return
		}
	}
}

func (a *Adapter) apply(o op) {
	if o.barrier != nil {
		close(o.barrier)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()

	opName, err := a.write(ctx, o.field, o.state)
	if err != nil {
		a.log.Errorf("Failed to save %s: %v", o.field, vcerrors.NewStorageError(opName, KeyFor(o.field), err))
		a.emitFailure(opName, o.field, err)
	}
}

// write applies the per-field storage rule and returns the operation name.
func (a *Adapter) write(ctx context.Context, field selection.Field, s selection.Persisted) (string, error) {
	switch field {
	case selection.FieldNationality:
		if s.NationalityCode == "" {
			return "remove_many", a.backend.RemoveMany(ctx, KeyNationality, KeyDestination)
		}
		return "set", a.backend.Set(ctx, KeyNationality, s.NationalityCode)
	case selection.FieldDestination:
		if s.DestinationCode == "" {
			return "remove", a.backend.Remove(ctx, KeyDestination)
		}
		return "set", a.backend.Set(ctx, KeyDestination, s.DestinationCode)
	case selection.FieldMode:
		return "set", a.backend.Set(ctx, KeyMode, string(s.Mode))
	case selection.FieldDestinations:
		if len(s.DestinationCodes) == 0 {
			return "remove", a.backend.Remove(ctx, KeyDestinations)
		}
		encoded, err := json.Marshal(s.DestinationCodes)
		if err != nil {
			return "set", err
		}
		return "set", a.backend.Set(ctx, KeyDestinations, string(encoded))
	}
	return "set", fmt.Errorf("unknown field '%s'", field)
}

func (a *Adapter) emitFailure(opName string, field selection.Field, err error) {
	payload := map[string]interface{}{"op": opName, "error": err.Error()}
	if field != "" {
		payload["field"] = string(field)
	}
	a.bus.Emit(events.Event{
		Type:      events.PersistenceFailed,
		Timestamp: time.Now(),
		SessionID: a.session,
		Payload:   payload,
	})
}
