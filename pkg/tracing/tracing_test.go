package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProvider_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	p, err := New(ctx, WithService("blueprint-test", "0.0.1"), WithWriter(&buf))
	require.NoError(t, err)

	_, span := Start(ctx, "test", "allocate", attribute.Int("budget", 31))
	End(span, nil)

	_, span = Start(ctx, "test", "reconcile")
	End(span, errors.New("boom"))

	require.NoError(t, p.Shutdown(ctx))

	out := buf.String()
	assert.Contains(t, out, `"Name":"allocate"`)
	assert.Contains(t, out, `"Name":"reconcile"`)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "blueprint-test")
}

func TestProvider_NilShutdown(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_CustomExporter(t *testing.T) {
	ctx := context.Background()
	exp := tracetest.NewInMemoryExporter()

	p, err := New(ctx, WithExporter(exp))
	require.NoError(t, err)

	_, span := Start(ctx, "test", "export", attribute.String("export.format", "pdf"))
	End(span, errors.New("unknown export format"))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "export", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("export.format", "pdf"))

	require.NoError(t, p.Shutdown(ctx))
}
