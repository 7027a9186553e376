// Package tracking carries the per-request logger and tracer through
// context.Context, the same CustomContextKeyValue idiom the rest of the
// ambient stack uses so handlers never thread both values separately.
package tracking

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const key = contextKey("tracking")

type values struct {
	Tracer trace.Tracer
	Logger mlog.Logger
}

// NewLoggerFromContext extracts the Logger carried in ctx, falling back to
// the no-op logger when none was attached.
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) mlog.Logger {
	if v, ok := ctx.Value(key).(*values); ok && v.Logger != nil {
		return v.Logger
	}

	return &mlog.NoneLogger{}
}

// ContextWithLogger returns a copy of ctx carrying logger.
func ContextWithLogger(ctx context.Context, logger mlog.Logger) context.Context {
	v, _ := ctx.Value(key).(*values)
	if v == nil {
		v = &values{}
	}

	v.Logger = logger

	return context.WithValue(ctx, key, v)
}

// NewTracerFromContext extracts the tracer carried in ctx, falling back to
// the global default tracer.
//
//nolint:ireturn
func NewTracerFromContext(ctx context.Context) trace.Tracer {
	if v, ok := ctx.Value(key).(*values); ok && v.Tracer != nil {
		return v.Tracer
	}

	return otel.Tracer("ingestion-core")
}

// ContextWithTracer returns a copy of ctx carrying tracer.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	v, _ := ctx.Value(key).(*values)
	if v == nil {
		v = &values{}
	}

	v.Tracer = tracer

	return context.WithValue(ctx, key, v)
}
</content>
