// Package telemetry wires optional OpenTelemetry tracing around recipe
// execution. It is off by default (spec.md's core has no telemetry
// concern of its own) and, when enabled, wraps the executor's step loop
// and the parallel/loop composite steps' fan-out with spans — exactly the
// two places spec.md §5 identifies as the engine's suspension/concurrency
// boundaries.
package telemetry

import (
	"context"
	"fmt"

	"github.com/recipeforge/recipeforge/internal/config"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/recipeforge/recipeforge"

// Init sets up OpenTelemetry tracing with an OTLP gRPC exporter when
// cfg.Enabled. It returns a shutdown function that should be called on
// graceful shutdown; when tracing is disabled the returned function is a
// no-op and the global tracer remains the OTel no-op implementation, so
// StepSpan/FanOutSpan are safe to call unconditionally from engine code.
func Init(cfg config.TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled || cfg.OTLPEndpoint == "" {
		log.Info().Msg("🔕 tracing disabled")
		return func(ctx context.Context) error { return nil }, nil
	}

	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("endpoint", cfg.OTLPEndpoint).
		Str("service", cfg.ServiceName).
		Msg("📡 tracing initialized")

	return tp.Shutdown, nil
}

// StepSpan starts a span around one step's execute (the step is already
// constructed when the executor opens it), named
// after its registry type and carrying its recipe-local index. Callers
// must call the returned end function with the step's resulting error.
func StepSpan(ctx context.Context, index int, stepType string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "step."+stepType,
		trace.WithAttributes(
			attribute.Int("recipeforge.step_index", index),
			attribute.String("recipeforge.step_type", stepType),
		))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}

// FanOutSpan starts a span around one parallel/loop fan-out, recording the
// substep count and effective concurrency cap.
func FanOutSpan(ctx context.Context, kind string, substeps, concurrency int) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fanout."+kind,
		trace.WithAttributes(
			attribute.Int("recipeforge.substeps", substeps),
			attribute.Int("recipeforge.max_concurrency", concurrency),
		))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
