// Package telemetry configures OpenTelemetry tracing for the CLI and turns
// engine transitions into spans.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/rxflow/internal/engine"
)

// Config controls tracing initialization.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// UseStdout enables the stdout exporter, writing to Writer
	// (default os.Stderr).
	UseStdout bool
	Writer    io.Writer
}

// Init installs a global tracer provider and returns its shutdown func,
// which flushes pending spans.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rxflow"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = os.Getenv("RXFLOW_VERSION")
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	var tp *sdktrace.TracerProvider
	if cfg.UseStdout {
		exp, err := stdouttrace.New(
			stdouttrace.WithWriter(cfg.Writer),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp,
				sdktrace.WithMaxExportBatchSize(512),
				sdktrace.WithBatchTimeout(200*time.Millisecond),
			),
			sdktrace.WithResource(res),
		)
	} else {
		tp = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	}

	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// TraceTransitions records one span per processed event of e until the
// returned cancel is called. A nil tracer uses the global provider.
//
// Spans are named "engine.transition" and carry the engine ID, sequence
// number, and outcome. Failed transitions get an error status.
func TraceTransitions[S, E, F any](tracer trace.Tracer, e *engine.Engine[S, E, F]) (cancel func()) {
	if tracer == nil {
		tracer = otel.Tracer("github.com/roach88/rxflow/internal/telemetry")
	}
	return e.OnTransition(func(tr engine.Transition[S, E, F]) {
		_, span := tracer.Start(context.Background(), "engine.transition", trace.WithAttributes(
			attribute.String("engine.id", tr.EngineID),
			attribute.Int64("engine.seq", tr.Seq),
			attribute.String("transition.outcome", Outcome(tr.Skipped, tr.Err)),
			attribute.Bool("transition.effect", tr.Effect != nil),
		))
		if tr.Err != nil {
			span.RecordError(tr.Err)
			span.SetStatus(codes.Error, "event dropped")
		}
		span.End()
	})
}

// Outcome names a transition result: "committed", "skipped", or "failed".
func Outcome(skipped bool, err error) string {
	switch {
	case err != nil:
		return "failed"
	case skipped:
		return "skipped"
	default:
		return "committed"
	}
}
