package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TracerProvider defines the interface for accessing the checker's tracer provider.
type TracerProvider interface {
	// GetTracer returns a Tracer instance with the specified name and options.
	GetTracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Shutdown flushes buffered spans and releases exporter resources.
	// Implementations should treat this as a no-op when tracing is disabled.
	Shutdown(ctx context.Context) error
}
