// Package telemetry defines the minimal logging and tracing interfaces used
// across the client so that callers may plug in their own observability
// stack without the client depending on a concrete logging framework at
// every call site.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured log messages. keyvals is an alternating
	// key/value list, e.g. Info(ctx, "connected", "url", u, "attempt", n).
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Tracer starts spans around component boundaries; the HTTP Invoker
	// opens one per invocation.
	Tracer interface {
		Start(ctx context.Context, name string) (context.Context, Span)
	}

	// Span is the subset of an OpenTelemetry span the client needs.
	Span interface {
		End()
		AddEvent(name string, keyvals ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error)
	}
)

// spanFromOtel adapts a trace.Span to Span.
type spanFromOtel struct{ span trace.Span }

func (s spanFromOtel) End() { s.span.End() }

func (s spanFromOtel) AddEvent(name string, keyvals ...any) {
	s.span.AddEvent(name)
	_ = keyvals // attribute conversion omitted: callers needing typed attrs use the otel span directly
}

func (s spanFromOtel) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s spanFromOtel) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}
