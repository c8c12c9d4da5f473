package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies spans created by the scrapper.
const instrumentationName = "link-tracker/scrapper"

// GetTracer returns the tracer for creating spans.
// It resolves through the global provider on each call, so a provider
// installed after package initialization (including in tests) is honored.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "poll-cycle")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
