// Package rules implements the visa rule store: a lazily populated cache of
// per-nationality rule tables backed by a loader registry.
package rules

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gxo-labs/visacheck/internal/logger"
	"github.com/gxo-labs/visacheck/internal/metrics"
	"github.com/gxo-labs/visacheck/internal/retry"
	"github.com/gxo-labs/visacheck/internal/tracing"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Store caches rule tables by nationality. An entry is either absent or a
// complete table; failed loads are never cached, so the next request for the
// same nationality loads again.
type Store struct {
	registry rules.Registry
	log      vclog.Logger
	bus      events.Bus
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	retrier  *retry.Helper
	policy   retry.Config
	session  string

	mu    sync.RWMutex
	cache map[string]rules.DestinationRules
	group singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for load failures.
func WithLogger(log vclog.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEventBus sets the bus receiving RulesLoaded and RulesLoadFailed events.
func WithEventBus(bus events.Bus) StoreOption {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithMetrics sets the collectors updated on lookups and loads.
func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer used for load spans.
func WithTracer(tracer trace.Tracer) StoreOption {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithLoadPolicy sets how many times a single load invokes the loader, and
// the delay between invocations.
func WithLoadPolicy(attempts int, delay time.Duration) StoreOption {
	return func(s *Store) {
		s.policy.Attempts = attempts
		s.policy.Delay = delay
	}
}

// WithSessionID tags emitted events with a session identifier.
func WithSessionID(id string) StoreOption {
	return func(s *Store) { s.session = id }
}

// NewStore creates a store over registry. A nil registry uses DefaultRegistry.
func NewStore(registry rules.Registry, opts ...StoreOption) *Store {
	if registry == nil {
		registry = DefaultRegistry
	}
	s := &Store{
		registry: registry,
		log:      logger.NewDiscardLogger(),
		bus:      noopBus{},
		metrics:  metrics.New(nil),
		tracer:   tracing.GetTracer(),
		policy:   retry.Config{Attempts: 1, BackoffFactor: 2.0, Jitter: 0.1},
		cache:    make(map[string]rules.DestinationRules),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "RuleStore")
	s.retrier = retry.NewHelper(s.log)
	return s
}

type noopBus struct{}

func (noopBus) Emit(events.Event) {}

// LoadRules returns the rule table for nationality, loading and caching it on
// first use. It reports false when the nationality is unsupported or the load
// failed; neither outcome is cached. Concurrent calls for the same
// nationality share one loader invocation.
func (s *Store) LoadRules(ctx context.Context, nationality string) (rules.DestinationRules, bool) {
	if table, ok := s.cached(nationality); ok {
		s.metrics.RuleCacheLookups.WithLabelValues("hit").Inc()
		return table.Clone(), true
	}

	loader, err := s.registry.Get(nationality)
	if err != nil {
		s.metrics.RuleCacheLookups.WithLabelValues("unsupported").Inc()
		s.log.Debugf("No rule loader for nationality '%s'", nationality)
		return nil, false
	}
	s.metrics.RuleCacheLookups.WithLabelValues("miss").Inc()

	// The shared load runs detached from any single caller's cancellation so
	// one impatient caller cannot fail the load for the others.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(nationality, func() (interface{}, error) {
		return s.load(loadCtx, nationality, loader)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false
		}
		return res.Val.(rules.DestinationRules).Clone(), true
	case <-ctx.Done():
		return nil, false
	}
}

func (s *Store) load(ctx context.Context, nationality string, loader rules.Loader) (rules.DestinationRules, error) {
	if table, ok := s.cached(nationality); ok {
		return table, nil
	}

	ctx, span := s.tracer.Start(ctx, "rules.Load", trace.WithAttributes(attribute.String("visacheck.nationality", nationality)))
	defer span.End()

	start := time.Now()
	var table rules.DestinationRules
	cfg := s.policy
	cfg.Label = "nationality=" + nationality
	err := s.retrier.Do(ctx, cfg, func(ctx context.Context) error {
		t, loadErr := loader(ctx)
		if loadErr != nil {
			return loadErr
		}
		table = t
		return nil
	})
	s.metrics.RuleLoadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		loadErr := vcerrors.NewLoadError(nationality, err)
		tracing.RecordError(span, loadErr)
		s.metrics.RuleLoads.WithLabelValues(nationality, "failure").Inc()
		s.log.Errorf("Failed to load visa rules for %s: %v", nationality, loadErr)
		s.emit(events.RulesLoadFailed, nationality, map[string]interface{}{"error": err.Error()})
		return nil, loadErr
	}
	if table == nil {
		table = rules.DestinationRules{}
	}

	s.mu.Lock()
	s.cache[nationality] = table
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("visacheck.destinations", len(table)))
	s.metrics.RuleLoads.WithLabelValues(nationality, "success").Inc()
	s.log.Debugf("Loaded %d visa rules for %s", len(table), nationality)
	s.emit(events.RulesLoaded, nationality, map[string]interface{}{"destinations": len(table)})
	return table, nil
}

func (s *Store) cached(nationality string) (rules.DestinationRules, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.cache[nationality]
	return table, ok
}

func (s *Store) emit(eventType events.EventType, nationality string, payload map[string]interface{}) {
	s.bus.Emit(events.Event{
		Type:        eventType,
		Timestamp:   time.Now(),
		SessionID:   s.session,
		Nationality: nationality,
		Payload:     payload,
	})
}

// GetCached returns the cached table without loading.
func (s *Store) GetCached(nationality string) (rules.DestinationRules, bool) {
	table, ok := s.cached(nationality)
	if !ok {
		return nil, false
	}
	return table.Clone(), true
}

// Resolve loads the table for nationality if needed and looks up destination.
func (s *Store) Resolve(ctx context.Context, nationality, destination string) (*rules.VisaRequirement, bool) {
	table, ok := s.LoadRules(ctx, nationality)
	if !ok {
		return nil, false
	}
	req, ok := table.Lookup(destination)
	if !ok {
		return nil, false
	}
	return &req, true
}

// ResolveCached is Resolve against the cache only.
func (s *Store) ResolveCached(nationality, destination string) (*rules.VisaRequirement, bool) {
	table, ok := s.cached(nationality)
	if !ok {
		return nil, false
	}
	req, ok := table.Lookup(destination)
	if !ok {
		return nil, false
	}
	return &req, true
}

// SupportedNationalities lists every nationality with a registered loader, sorted.
func (s *Store) SupportedNationalities() []string {
	codes := s.registry.List()
	sort.Strings(codes)
	return codes
}

// HasNationality reports whether a loader is registered for code. It does not load.
func (s *Store) HasNationality(code string) bool {
	_, err := s.registry.Get(code)
	return err == nil
}

// Preload warms the cache for one nationality. Failures are logged by the load.
func (s *Store) Preload(ctx context.Context, nationality string) {
	s.LoadRules(ctx, nationality)
}

// PreloadAll loads every supported nationality concurrently. A failing
// nationality does not stop the others; the number of tables that could not
// be loaded is returned.
func (s *Store) PreloadAll(ctx context.Context) int {
	codes := s.SupportedNationalities()
	var failed atomic.Int32
	var wg sync.WaitGroup
	for _, code := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.LoadRules(ctx, code); !ok {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()
	return int(failed.Load())
}

// LoadedNationalities lists the nationalities currently cached, sorted.
func (s *Store) LoadedNationalities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.cache))
	for code := range s.cache {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clear empties the cache. In-flight loads may repopulate it.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]rules.DestinationRules)
}
