// Package tracing wires OpenTelemetry with a stdout exporter and gives the
// rest of the code a small span helper.
package tracing

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	ServiceName    string
	ServiceVersion string
	Writer         io.Writer
	Exporter       sdktrace.SpanExporter
}

type Option func(*Options)

func WithService(name, version string) Option {
	return func(o *Options) {
		o.ServiceName = name
		o.ServiceVersion = version
	}
}

// WithWriter sends stdout-exported spans to w instead of os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *Options) { o.Writer = w }
}

// WithExporter replaces the stdout exporter entirely.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *Options) { o.Exporter = exp }
}

// Provider owns the SDK tracer provider installed as the global provider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New builds a tracer provider and installs it globally.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	options := &Options{
		ServiceName:    "exam-blueprint",
		ServiceVersion: "dev",
		Writer:         os.Stdout,
	}
	for _, opt := range opts {
		opt(options)
	}

	exporter := options.Exporter
	if exporter == nil {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(options.Writer))
		if err != nil {
			return nil, err
		}
		exporter = exp
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", options.ServiceName),
			attribute.String("service.version", options.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp}, nil
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Start opens a span on the named tracer of the global provider. Until New is
// called the global provider is a no-op.
func Start(ctx context.Context, tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracer).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
