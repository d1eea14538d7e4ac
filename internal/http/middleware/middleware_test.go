package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		rid := c.Locals(RequestIDLocalKey)
		return c.SendString(rid.(string))
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)

		// Check if it's readable in handler (from response body)
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, ridHeader, buf.String())
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		existingID := "test-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)

		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, existingID, resp.Header.Get(RequestIDHeader))

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, existingID, buf.String())
	})

	t.Run("should replace oversized request id", func(t *testing.T) {
		oversized := strings.Repeat("x", maxRequestIDLen+1)
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, oversized)

		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)
		assert.NotEqual(t, oversized, ridHeader)
	})
}

func TestRequestLogger(t *testing.T) {
	newApp := func(buf *bytes.Buffer) *fiber.App {
		logger := zerolog.New(buf).With().Timestamp().Logger()
		app := fiber.New()

		// RequestLogger depends on RequestID for the request_id field
		app.Use(RequestID())
		app.Use(RequestLogger(logger))

		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusAccepted)
		})
		app.Get("/boom", func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusBadGateway, "upstream broke")
		})
		return app
	}

	t.Run("logs request fields at info level", func(t *testing.T) {
		var buf bytes.Buffer
		app := newApp(&buf)

		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

		var logData map[string]any
		err := json.Unmarshal(buf.Bytes(), &logData)
		assert.NoError(t, err)

		assert.Equal(t, "info", logData["level"])
		assert.NotEmpty(t, logData["request_id"])
		assert.Equal(t, "GET", logData["method"])
		assert.Equal(t, "/test", logData["path"])
		assert.Equal(t, float64(fiber.StatusAccepted), logData["status"])
		assert.NotNil(t, logData["latency"])
		assert.Equal(t, "http_request", logData["message"])
	})

	t.Run("escalates to error level on 5xx", func(t *testing.T) {
		var buf bytes.Buffer
		app := newApp(&buf)

		req := httptest.NewRequest("GET", "/boom", nil)
		app.Test(req)

		var logData map[string]any
		err := json.Unmarshal(buf.Bytes(), &logData)
		assert.NoError(t, err)

		assert.Equal(t, "error", logData["level"])
		assert.Equal(t, float64(fiber.StatusBadGateway), logData["status"])
		assert.NotEmpty(t, logData["error"])
	})

	t.Run("escalates to warn level on 404", func(t *testing.T) {
		var buf bytes.Buffer
		app := newApp(&buf)

		req := httptest.NewRequest("GET", "/nope", nil)
		app.Test(req)

		var logData map[string]any
		err := json.Unmarshal(buf.Bytes(), &logData)
		assert.NoError(t, err)

		assert.Equal(t, "warn", logData["level"])
		assert.Equal(t, float64(fiber.StatusNotFound), logData["status"])
	})
}
