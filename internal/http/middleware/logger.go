package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RequestLogger logs each HTTP request with the given zerolog logger.
// Fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method, path, status
// - latency, bytes, client_ip
//
// The log level escalates with the response status: warn for 4xx, error for 5xx.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		// Collect fields after handler executed to capture final status
		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if err != nil {
			// The app error handler runs after this middleware returns, so
			// derive the status it is going to write.
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		level := zerolog.InfoLevel
		switch {
		case status >= fiber.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= fiber.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		evt := log.WithLevel(level).
			Str("request_id", rid).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes", len(c.Response().Body())).
			Str("client_ip", c.IP())
		if err != nil {
			evt = evt.Err(err)
		}
		evt.Msg("http_request")

		return err
	}
}
