// Package telemetry provides OpenTelemetry tracing for the game engine.
package telemetry

import (
	"context"
	"os"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName    = "skirmish"
	serviceVersion = "0.1.0"
)

// Setup installs a global tracer provider that exports spans over OTLP/HTTP.
// It reads configuration from the standard OTEL_* environment variables:
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector endpoint (https://api.honeycomb.io)
//   - OTEL_EXPORTER_OTLP_HEADERS: headers, e.g. x-honeycomb-team=<api-key>
//
// config.SetupOTelEnv fills both from HONEYCOMB_API_KEY. Returns a shutdown
// function that flushes pending spans; call it on exit.
func Setup(ctx context.Context) (shutdown func(context.Context) error, err error) {
	// The exporter picks up OTEL_* env vars on its own
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	// Service resource for every span. Not merged with resource.Default(),
	// whose schema URL can conflict with ours.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
			attribute.String("telemetry.sdk.language", "go"),
			attribute.String("telemetry.sdk.name", "opentelemetry"),
			attribute.String("host.name", hostname()),
			attribute.String("os.type", runtime.GOOS),
			attribute.String("process.runtime.name", "go"),
			attribute.String("process.runtime.version", runtime.Version()),
		),
	)
	if err != nil {
		return nil, err
	}

	// Batch span processor; Shutdown flushes it
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	// Register globally so Tracer picks it up
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns a named tracer for a component such as "session" or "world".
// Use it to create spans within that part of the game. Until Setup runs, the
// global provider is a no-op and spans cost almost nothing.
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(serviceName + "/" + name)
}

// hostname returns the system hostname, or "unknown" if it cannot be determined.
func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
