package middleware

import (
	"net/http/httptest"
	"testing"

	"labbook/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("labbook-test")
	t.Cleanup(func() { observability.Tracer = prev })
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddlewareNamesSpanAfterRoute(t *testing.T) {
	sr := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(5))
		return c.SendString("post")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/31", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/posts/:id", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	viewer, ok := spanAttr(spans[0], observability.AttrViewerID)
	require.True(t, ok)
	assert.Equal(t, int64(5), viewer.AsInt64())
	status, ok := spanAttr(spans[0], "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(fiber.StatusOK), status.AsInt64())
}

func TestTracingMiddlewareMarksServerErrors(t *testing.T) {
	sr := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/api/feed", func(c *fiber.Ctx) error { return fiber.ErrServiceUnavailable })
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	for _, target := range []string{"/api/feed", "/api/posts/8"} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, codes.Unset, spans[1].Status().Code, "client errors leave the span status unset")
}
