package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandlerAddsRequestAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, 42)
	logger.With("component", "test").InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":42`)
	assert.Contains(t, out, `"component":"test"`)
}

func TestContextMiddlewareCopiesLocals(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "abc")
		c.Locals("traceID", "trace-1")
		return c.Next()
	})
	app.Use(ContextMiddleware())

	var gotRID, gotTID string
	app.Get("/", func(c *fiber.Ctx) error {
		gotRID, _ = c.UserContext().Value(RequestIDKey).(string)
		gotTID, _ = c.UserContext().Value(TraceIDKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc", gotRID)
	assert.Equal(t, "trace-1", gotTID)
}

func TestNewLoggerLevels(t *testing.T) {
	l := NewLogger("production", "warn")
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))

	l = NewLogger("development", "debug")
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
}
