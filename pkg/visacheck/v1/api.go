package v1

import (
	"context"
	"time"

	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/metrics"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/selection"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/tracing"
)

// CheckerV1 defines the public interface of the visa checker core.
type CheckerV1 interface {
	// Start hydrates the selection state from storage and, when configured,
	// preloads every rule table. Until Start returns the selection is not Ready.
	Start(ctx context.Context) error
	// Close tears the checker down, flushing pending saves.
	Close(ctx context.Context) error

	// Selection returns the interactive selection state machine.
	Selection() selection.Machine
	// Status resolves the current single-mode selection.
	Status(ctx context.Context) rules.Status
	// Comparison resolves every destination of the current compare list.
	Comparison(ctx context.Context) []rules.ComparisonRow

	// Resolve resolves an arbitrary route without touching the selection.
	Resolve(ctx context.Context, nationality, destination string) rules.Status
	// Compare resolves several destinations for one nationality.
	Compare(ctx context.Context, nationality string, destinations []string) []rules.ComparisonRow
	// SupportedNationalities lists nationality codes that have rule data.
	SupportedNationalities() []string
	// Countries returns the country registry used for validation.
	Countries() country.Registry

	// MetricsRegistryProvider returns the underlying metrics provider.
	MetricsRegistryProvider() metrics.RegistryProvider
	// TracerProvider returns the underlying tracing provider.
	TracerProvider() tracing.TracerProvider

	// Setter methods for configuring checker components programmatically.
	SetStorageBackend(backend storage.Backend) error
	SetEventBus(bus events.Bus) error
	SetRulesRegistry(registry rules.Registry) error
	SetCountryRegistry(registry country.Registry) error
	SetMetricsRegistryProvider(provider metrics.RegistryProvider) error
	SetTracerProvider(provider tracing.TracerProvider) error
	SetLoadPolicy(policy LoadPolicy) error
	SetPreload(enabled bool) error
}

// CheckerOption is a function type used to configure the checker at creation.
type CheckerOption func(CheckerV1) error

// LoadPolicy controls how a single rule table load is attempted.
// Failed loads are never cached; a later request always triggers a new load.
type LoadPolicy struct {
	// Attempts is the number of loader invocations per load (minimum 1).
	Attempts int
	// Delay is the wait between attempts.
	Delay time.Duration
}

// WithStorageBackend is a checker option to provide the key-value backend for selection state.
func WithStorageBackend(backend storage.Backend) CheckerOption {
	return func(c CheckerV1) error {
		if backend == nil {
			return vcerrors.NewConfigError("storage backend cannot be nil", nil)
		}
		return c.SetStorageBackend(backend)
	}
}

// WithEventBus is a checker option to provide a custom event bus.
func WithEventBus(bus events.Bus) CheckerOption {
	return func(c CheckerV1) error {
		if bus == nil {
			return vcerrors.NewConfigError("event bus cannot be nil", nil)
		}
		return c.SetEventBus(bus)
	}
}

// WithRulesRegistry is a checker option to provide a custom loader registry.
func WithRulesRegistry(registry rules.Registry) CheckerOption {
	return func(c CheckerV1) error {
		if registry == nil {
			return vcerrors.NewConfigError("rules registry cannot be nil", nil)
		}
		return c.SetRulesRegistry(registry)
	}
}

// WithCountryRegistry is a checker option to replace the bundled country list.
func WithCountryRegistry(registry country.Registry) CheckerOption {
	return func(c CheckerV1) error {
		if registry == nil {
			return vcerrors.NewConfigError("country registry cannot be nil", nil)
		}
		return c.SetCountryRegistry(registry)
	}
}

// WithMetricsRegistryProvider is a checker option to provide a custom metrics provider.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) CheckerOption {
	return func(c CheckerV1) error {
		if provider == nil {
			return vcerrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		return c.SetMetricsRegistryProvider(provider)
	}
}

// WithTracerProvider is a checker option to provide a custom tracing provider.
func WithTracerProvider(provider tracing.TracerProvider) CheckerOption {
	return func(c CheckerV1) error {
		if provider == nil {
			return vcerrors.NewConfigError("tracer provider cannot be nil", nil)
		}
		return c.SetTracerProvider(provider)
	}
}

// WithLoadPolicy is a checker option to configure rule load attempts.
func WithLoadPolicy(attempts int, delay time.Duration) CheckerOption {
	return func(c CheckerV1) error {
		if attempts <= 0 || delay < 0 {
			return vcerrors.NewConfigError("load policy attempts must be positive and delay non-negative", nil)
		}
		return c.SetLoadPolicy(LoadPolicy{Attempts: attempts, Delay: delay})
	}
}

// WithPreload is a checker option to warm every rule table during Start.
func WithPreload(enabled bool) CheckerOption {
	return func(c CheckerV1) error {
		return c.SetPreload(enabled)
	}
}
