package main

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
)

const tracerName = "github.com/nerrad567/cinnamon-core"

// spanLogger is the part of *logging.Logger the span processor needs.
type spanLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// newTracer returns the engine tracer and a shutdown func. With tracing
// disabled the tracer is a no-op and shutdown does nothing.
func newTracer(cfg config.TracingConfig, log spanLogger) (trace.Tracer, func(context.Context) error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider().Tracer(tracerName), func(context.Context) error { return nil }
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", version),
		)),
		sdktrace.WithSpanProcessor(&logSpanProcessor{log: log}),
	)
	return provider.Tracer(tracerName), provider.Shutdown
}

// logSpanProcessor writes every finished span to the log.
type logSpanProcessor struct {
	log spanLogger
}

func (p *logSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	args := []any{
		"span", span.Name(),
		"trace_id", span.SpanContext().TraceID().String(),
		"duration_ms", span.EndTime().Sub(span.StartTime()).Milliseconds(),
		"events", len(span.Events()),
	}
	for _, kv := range span.Attributes() {
		args = append(args, string(kv.Key), kv.Value.Emit())
	}
	if st := span.Status(); st.Code == codes.Error {
		p.log.Warn("span finished with error", append(args, "status", st.Description)...)
		return
	}
	p.log.Info("span finished", args...)
}

func (p *logSpanProcessor) Shutdown(context.Context) error { return nil }

func (p *logSpanProcessor) ForceFlush(context.Context) error { return nil }
