package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger("production", &buf)
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func logRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLoggerAddsContextIDs(t *testing.T) {
	buf := captureLogs(t)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(7))
	ctx = WithPost(ctx, 42)
	ctx = WithPeer(ctx, 9)
	Logger.With("component", "feed").InfoContext(ctx, "ranked")

	recs := logRecords(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "req-1", recs[0]["request_id"])
	assert.EqualValues(t, 7, recs[0]["user_id"])
	assert.EqualValues(t, 42, recs[0]["post_id"])
	assert.EqualValues(t, 9, recs[0]["peer_id"])
	assert.Equal(t, "feed", recs[0]["component"])
}

func TestLoggerOmitsAnonymousViewer(t *testing.T) {
	buf := captureLogs(t)

	ctx := context.WithValue(context.Background(), UserIDKey, uint(0))
	Logger.InfoContext(ctx, "feed served")

	recs := logRecords(t, buf)
	require.Len(t, recs, 1)
	assert.NotContains(t, recs[0], "user_id")
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("production", &buf).Debug("hidden")
	assert.Zero(t, buf.Len())

	NewLogger("development", &buf).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestStructuredLogger(t *testing.T) {
	buf := captureLogs(t)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-9")
		return c.Next()
	})
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "404" {
			return fiber.ErrNotFound
		}
		return c.SendString("post")
	})
	app.Post("/api/posts/:id/validate", func(c *fiber.Ctx) error {
		return errors.New("store unavailable")
	})

	for _, target := range []string{"/health/live", "/api/posts/17", "/api/posts/404"} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}
	resp, err := app.Test(httptest.NewRequest("POST", "/api/posts/3/validate", nil))
	require.NoError(t, err)
	resp.Body.Close()

	recs := logRecords(t, buf)
	require.Len(t, recs, 3, "health probe is not logged")

	assert.Equal(t, "INFO", recs[0]["level"])
	assert.Equal(t, "/api/posts/:id", recs[0]["route"])
	assert.Equal(t, "/api/posts/17", recs[0]["path"])
	assert.Equal(t, "req-9", recs[0]["request_id"])

	assert.Equal(t, "WARN", recs[1]["level"])
	assert.EqualValues(t, fiber.StatusNotFound, recs[1]["status"])

	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.EqualValues(t, fiber.StatusInternalServerError, recs[2]["status"])
	assert.Equal(t, "store unavailable", recs[2]["error"])
}
