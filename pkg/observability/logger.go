package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"

	logEventName   = "log"
	eventSeverity  = "log.severity"
	eventMessage   = "log.message"
	eventAttrLimit = 16
)

// spanEventLevel is the lowest level mirrored onto the active span.
const spanEventLevel = slog.LevelWarn

// TracingHandler is an [slog.Handler] that correlates log records with the
// active span. Records carry trace_id and span_id, and records at warn or above
// are also added to a recording span as "log" events, even when the inner
// handler's level filters them out of the log stream.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner and pre-attaches service, mode and (when set)
// env so they stay top-level under WithGroup.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled reports whether the record goes to the inner handler or to the span.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if th.inner.Enabled(ctx, level) {
		return true
	}

	return level >= spanEventLevel && trace.SpanFromContext(ctx).IsRecording()
}

// Handle records a span event when applicable, then delegates with trace context added.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)

	if record.Level >= spanEventLevel && span.IsRecording() {
		span.AddEvent(logEventName, trace.WithAttributes(eventAttributes(record)...))
	}

	if !th.inner.Enabled(ctx, record.Level) {
		return nil
	}

	if sc := span.SpanContext(); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a TracingHandler whose inner handler carries attrs.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a TracingHandler whose inner handler opens group name.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

func eventAttributes(record slog.Record) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, min(record.NumAttrs(), eventAttrLimit)+2)
	attrs = append(attrs,
		attribute.String(eventSeverity, record.Level.String()),
		attribute.String(eventMessage, record.Message),
	)

	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attribute.String(attr.Key, attr.Value.Resolve().String()))

		return len(attrs) < eventAttrLimit+2
	})

	return attrs
}
