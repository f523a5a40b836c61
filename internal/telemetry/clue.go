package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"goa.design/clue/log"
)

type (
	// ClueLogger delegates to goa.design/clue/log so that applications
	// already configured with clue (as goa-based controllers typically
	// are) get the client's logs in their existing format and sinks.
	ClueLogger struct{}

	// ClueTracer delegates to the global OpenTelemetry TracerProvider.
	// Configure it via otel.SetTracerProvider before connecting, usually
	// through clue.ConfigureOpenTelemetry.
	ClueTracer struct {
		name string
	}
)

// NewClueLogger constructs a Logger backed by goa.design/clue/log. The
// caller installs formatting/debug settings on the context via
// log.Context beforehand.
func NewClueLogger() Logger { return ClueLogger{} }

// NewClueTracer constructs a Tracer backed by the global OTEL
// TracerProvider, scoped under the given instrumentation name.
func NewClueTracer(name string) Tracer { return ClueTracer{name: name} }

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToFielders(keyvals)...)...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToFielders(keyvals)...)...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := []log.Fielder{log.KV{K: "msg", V: msg}, log.KV{K: "severity", V: "warning"}}
	log.Warn(ctx, append(fielders, kvToFielders(keyvals)...)...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToFielders(keyvals)...)...)
}

func (t ClueTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	tracer := otel.Tracer(t.name)
	newCtx, span := tracer.Start(ctx, name)
	return newCtx, spanFromOtel{span: span}
}

func kvToFielders(keyvals []any) []log.Fielder {
	out := make([]log.Fielder, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		out = append(out, log.KV{K: key, V: keyvals[i+1]})
	}
	return out
}
