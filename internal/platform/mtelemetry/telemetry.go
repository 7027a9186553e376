// Package mtelemetry wires the process tracer provider used around
// orchestrator batches, resolver calls, and dispatcher handler invocations.
package mtelemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the process tracer provider lifecycle.
type Telemetry struct {
	ServiceName               string
	ServiceVersion             string
	DeploymentEnv              string
	CollectorExporterEndpoint string

	TracerProvider *sdktrace.TracerProvider
	shutdown       func(context.Context) error
}

func (t *Telemetry) newResource() (*sdkresource.Resource, error) {
	return sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(t.ServiceName),
			semconv.ServiceVersion(t.ServiceVersion),
			semconv.DeploymentEnvironment(t.DeploymentEnv)),
	)
}

func (t *Telemetry) newExporter(ctx context.Context) (*otlptrace.Exporter, error) {
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(t.CollectorExporterEndpoint),
		otlptracegrpc.WithInsecure())
}

// Initialize builds the tracer provider, installs it as the otel global, and
// returns itself so callers can defer Shutdown.
func (t *Telemetry) Initialize(ctx context.Context) (*Telemetry, error) {
	res, err := t.newResource()
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	exp, err := t.newExporter(ctx)
	if err != nil {
		return nil, fmt.Errorf("build tracer exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	t.TracerProvider = tp
	t.shutdown = func(ctx context.Context) error {
		if err := exp.Shutdown(ctx); err != nil {
			return err
		}

		return tp.Shutdown(ctx)
	}

	return t, nil
}

// Shutdown flushes and tears down the tracer provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}

	return t.shutdown(ctx)
}

// SetSpanAttributesFromStruct serializes valueStruct as JSON and attaches it
// to span under key.
func SetSpanAttributesFromStruct(span *trace.Span, key string, valueStruct any) error {
	data, err := json.Marshal(valueStruct)
	if err != nil {
		return err
	}

	(*span).SetAttributes(attribute.KeyValue{
		Key:   attribute.Key(key),
		Value: attribute.StringValue(string(data)),
	})

	return nil
}

// HandleSpanError records err on span and marks it as failed.
func HandleSpanError(span *trace.Span, message string, err error) {
	(*span).SetStatus(codes.Error, message+": "+err.Error())
	(*span).RecordError(err)
}
</content>
