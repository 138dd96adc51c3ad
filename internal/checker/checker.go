// Package checker assembles the visacheck core: the rule store, the selection
// machine and its persistence adapter, behind the public CheckerV1 interface.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	intCountry "github.com/gxo-labs/visacheck/internal/country"
	intEvents "github.com/gxo-labs/visacheck/internal/events"
	intMetrics "github.com/gxo-labs/visacheck/internal/metrics"
	"github.com/gxo-labs/visacheck/internal/persist"
	"github.com/gxo-labs/visacheck/internal/resolver"
	intRules "github.com/gxo-labs/visacheck/internal/rules"
	_ "github.com/gxo-labs/visacheck/internal/rules/data"
	intSelection "github.com/gxo-labs/visacheck/internal/selection"
	intStorage "github.com/gxo-labs/visacheck/internal/storage"
	intTracing "github.com/gxo-labs/visacheck/internal/tracing"
	visacheck "github.com/gxo-labs/visacheck/pkg/visacheck/v1"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/metrics"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/selection"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
	vctracing "github.com/gxo-labs/visacheck/pkg/visacheck/v1/tracing"
)

const tracerName = "visacheck-core"

// Checker is the default CheckerV1 implementation.
type Checker struct {
	log vclog.Logger

	// Configurable collaborators, fixed once NewChecker returns.
	backend         storage.Backend
	eventBus        events.Bus
	rulesRegistry   rules.Registry
	countries       country.Registry
	metricsProvider metrics.RegistryProvider
	tracerProvider  vctracing.TracerProvider
	policy          visacheck.LoadPolicy
	preload         bool

	sessionID string
	built     bool

	store   *intRules.Store
	adapter *persist.Adapter
	machine *intSelection.Machine
	metrics *intMetrics.Metrics

	closeOnce sync.Once
	closeErr  error
}

var _ visacheck.CheckerV1 = (*Checker)(nil)

// NewChecker applies opts and builds the core. Components not supplied by an
// option fall back to in-process defaults: an in-memory backend, the bundled
// rule tables and country list, a NoOp event bus, a private Prometheus
// registry and a NoOp tracer.
func NewChecker(log vclog.Logger, opts ...visacheck.CheckerOption) (*Checker, error) {
	if log == nil {
		return nil, vcerrors.NewConfigError("logger cannot be nil", nil)
	}
	c := &Checker{
		log:       log,
		policy:    visacheck.LoadPolicy{Attempts: 1},
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, vcerrors.NewConfigError(fmt.Sprintf("failed to apply checker option: %v", err), err)
		}
	}

	if c.backend == nil {
		c.log.Debugf("No storage backend provided, using in-memory backend.")
		c.backend = intStorage.NewMemoryBackend()
	}
	if c.eventBus == nil {
		c.log.Debugf("No event bus provided, using default NoOp bus.")
		c.eventBus = intEvents.NewNoOpEventBus()
	}
	if c.rulesRegistry == nil {
		c.rulesRegistry = intRules.DefaultRegistry
	}
	if c.countries == nil {
		reg, err := intCountry.Default()
		if err != nil {
			return nil, vcerrors.NewConfigError("failed to load bundled country list", err)
		}
		c.countries = reg
	}
	if c.metricsProvider == nil {
		c.metricsProvider = intMetrics.NewPrometheusRegistryProvider()
	}
	if c.tracerProvider == nil {
		tp, err := intTracing.NewNoOpProvider()
		if err != nil {
			return nil, vcerrors.NewConfigError("failed to create default NoOp tracer provider", err)
		}
		c.tracerProvider = tp
	}

	c.metrics = intMetrics.New(c.metricsProvider.Registry())
	tracer := c.tracerProvider.GetTracer(tracerName)

	c.store = intRules.NewStore(c.rulesRegistry,
		intRules.WithLogger(c.log),
		intRules.WithEventBus(c.eventBus),
		intRules.WithMetrics(c.metrics),
		intRules.WithTracer(tracer),
		intRules.WithLoadPolicy(c.policy.Attempts, c.policy.Delay),
		intRules.WithSessionID(c.sessionID),
	)
	c.adapter = persist.NewAdapter(c.backend, c.countries,
		persist.WithLogger(c.log),
		persist.WithEventBus(c.eventBus),
		persist.WithTracer(tracer),
		persist.WithSessionID(c.sessionID),
	)
	c.machine = intSelection.NewMachine(c.countries, c.adapter,
		intSelection.WithLogger(c.log),
		intSelection.WithEventBus(c.eventBus),
		intSelection.WithSessionID(c.sessionID),
	)
	c.built = true
	c.log.Debugf("Checker session %s initialized", c.sessionID)
	return c, nil
}

// Start hydrates the selection and, when preload is enabled, warms every
// supported rule table. Preload failures are logged by the store and do not
// fail Start.
func (c *Checker) Start(ctx context.Context) error {
	if err := c.machine.Hydrate(ctx); err != nil {
		return err
	}
	if c.preload {
		start := time.Now()
		failed := c.store.PreloadAll(ctx)
		c.log.Infof("Preloaded rule tables in %s (%d failed)", time.Since(start).Round(time.Millisecond), failed)
	}
	return nil
}

// Flush waits until every scheduled save has reached the backend.
func (c *Checker) Flush(ctx context.Context) error {
	return c.adapter.Flush(ctx)
}

// Close unmounts the selection, drains pending saves and closes the backend.
// It is safe to call more than once.
func (c *Checker) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.machine.Close()
		var errs []error
		if err := c.adapter.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draining saves: %w", err))
		}
		if err := c.backend.Close(); err != nil {
			errs = append(errs, vcerrors.NewStorageError("close", "", err))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func (c *Checker) Selection() selection.Machine { return c.machine }

// Status resolves the current single-mode destination. No rule table is
// loaded until a destination has been chosen.
func (c *Checker) Status(ctx context.Context) rules.Status {
	s := c.machine.Snapshot()
	if s.NationalityCode == "" || s.DestinationCode == "" {
		return resolver.ResolveStatus(nil, s.DestinationCode)
	}
	return c.Resolve(ctx, s.NationalityCode, s.DestinationCode)
}

// Comparison resolves every destination of the compare list, in list order.
func (c *Checker) Comparison(ctx context.Context) []rules.ComparisonRow {
	s := c.machine.Snapshot()
	if s.NationalityCode == "" || len(s.DestinationCodes) == 0 {
		return []rules.ComparisonRow{}
	}
	return c.Compare(ctx, s.NationalityCode, s.DestinationCodes)
}

func (c *Checker) Resolve(ctx context.Context, nationality, destination string) rules.Status {
	if destination == "" {
		return resolver.ResolveStatus(nil, "")
	}
	table, _ := c.store.LoadRules(ctx, nationality)
	return resolver.ResolveStatus(table, destination)
}

func (c *Checker) Compare(ctx context.Context, nationality string, destinations []string) []rules.ComparisonRow {
	table, _ := c.store.LoadRules(ctx, nationality)
	return resolver.Compare(table, destinations, c.countries)
}

func (c *Checker) SupportedNationalities() []string { return c.store.SupportedNationalities() }

// HasNationality reports whether rule data exists for code.
func (c *Checker) HasNationality(code string) bool { return c.store.HasNationality(code) }

// LoadedNationalities lists the rule tables currently cached.
func (c *Checker) LoadedNationalities() []string { return c.store.LoadedNationalities() }

func (c *Checker) Countries() country.Registry { return c.countries }

// SessionID identifies this checker in emitted events.
func (c *Checker) SessionID() string { return c.sessionID }

func (c *Checker) MetricsRegistryProvider() metrics.RegistryProvider { return c.metricsProvider }

func (c *Checker) TracerProvider() vctracing.TracerProvider { return c.tracerProvider }

// --- Setters ---

var errAlreadyBuilt = vcerrors.NewConfigError("checker components cannot be replaced after construction", nil)

func (c *Checker) SetStorageBackend(backend storage.Backend) error {
	if c.built {
		return errAlreadyBuilt
	}
	c.backend = backend
	return nil
}

func (c *Checker) SetEventBus(bus events.Bus) error {
	if c.built {
		return errAlreadyBuilt
	}
	c.eventBus = bus
	return nil
}

func (c *Checker) SetRulesRegistry(registry rules.Registry) error {
	if c.built {
		return errAlreadyBuilt
	}
	c.rulesRegistry = registry
	return nil
}

func (c *Checker) SetCountryRegistry(registry country.Registry) error {
	if c.built {
		return errAlreadyBuilt
	}
	c.countries = registry
	return nil
}

func (c *Checker) SetMetricsRegistryProvider(provider metrics.RegistryProvider) error {
	if c.built {
		return errAlreadyBuilt
	}
	c.metricsProvider = provider
	return nil
}

func (c *Checker) SetTracerProvider(provider vctracing.TracerProvider) error {
	if c.built {
		return errAlreadyBuilt
	}
	c.tracerProvider = provider
	return nil
}

func (c *Checker) SetLoadPolicy(policy visacheck.LoadPolicy) error {
	if c.built {
		return errAlreadyBuilt
	}
	if policy.Attempts <= 0 || policy.Delay < 0 {
		return vcerrors.NewConfigError("load policy attempts must be positive and delay non-negative", nil)
	}
	c.policy = policy
	return nil
}

func (c *Checker) SetPreload(enabled bool) error {
	c.preload = enabled
	return nil
}
