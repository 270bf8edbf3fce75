// Package tracing provides the tracer used around agent runs, model calls and
// tool dispatches. With telemetry disabled the tracer is a no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nextlevelbuilder/goreact/internal/tracing/otelexport"
)

// TracerName is the instrumentation scope of goreact spans.
const TracerName = "github.com/nextlevelbuilder/goreact"

// ShutdownFunc flushes and stops the tracer backend.
type ShutdownFunc func(context.Context) error

// Options selects the tracer backend.
type Options struct {
	Enabled bool
	Export  otelexport.Config
}

// Setup returns a tracer and its shutdown function.
func Setup(ctx context.Context, opts Options) (trace.Tracer, ShutdownFunc, error) {
	if !opts.Enabled {
		return noop.NewTracerProvider().Tracer(TracerName), func(context.Context) error { return nil }, nil
	}
	exp, err := otelexport.New(ctx, opts.Export)
	if err != nil {
		return nil, nil, err
	}
	return exp.Tracer(TracerName), exp.Shutdown, nil
}
