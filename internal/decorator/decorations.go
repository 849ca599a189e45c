package decorator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/roach88/rxflow/internal/decorator"

// LogDecoration logs every delivery at debug level with its duration.
func LogDecoration(logger *slog.Logger, name string) Decoration {
	if logger == nil {
		logger = slog.Default()
	}
	var seq atomic.Int64
	return DecorationFunc(func() func() {
		n := seq.Add(1)
		start := time.Now()
		logger.Debug("effect event start", "handler", name, "delivery", n)
		return func() {
			logger.Debug("effect event finish",
				"handler", name,
				"delivery", n,
				"duration", time.Since(start),
			)
		}
	})
}

// TraceDecoration wraps every delivery in a span named "<name>.dispatch".
// A nil tracer uses the global provider.
func TraceDecoration(tracer trace.Tracer, name string) Decoration {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	var seq atomic.Int64
	return DecorationFunc(func() func() {
		_, span := tracer.Start(context.Background(), name+".dispatch", trace.WithAttributes(
			attribute.String("effect.handler", name),
			attribute.Int64("effect.delivery", seq.Add(1)),
		))
		return func() { span.End() }
	})
}

// CounterDecoration tracks deliveries in flight, e.g. to drive a loading
// indicator. onChange receives the new count after every change.
func CounterDecoration(onChange func(inFlight int64)) Decoration {
	var n atomic.Int64
	return DecorationFunc(func() func() {
		onChange(n.Add(1))
		return func() { onChange(n.Add(-1)) }
	})
}
