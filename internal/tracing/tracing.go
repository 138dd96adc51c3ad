package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// tracerName is the default name used when acquiring a tracer instance.
const tracerName = "visacheck"

// GetTracer returns a named tracer from the global OpenTelemetry provider,
// which is a no-op unless the application installed one. Prefer injecting a
// TracerProvider.
func GetTracer() oteltrace.Tracer {
	return otel.Tracer(tracerName)
}

// RecordError records err on span and marks the span as failed.
// Does nothing if err is nil or the span is not recording.
func RecordError(span oteltrace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
