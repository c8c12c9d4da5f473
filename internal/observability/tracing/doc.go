// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created through the global tracer provider. Without an SDK
// provider installed they are no-ops; tests install an in-memory recorder
// from go.opentelemetry.io/otel/sdk/trace/tracetest.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "check-link",
//	    trace.WithAttributes(attribute.String("link.url", url)))
//	defer span.End()
package tracing
