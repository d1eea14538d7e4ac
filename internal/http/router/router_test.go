package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"canister/internal/config"
	"canister/internal/http/handler"
	"canister/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRegistrar struct{}

func (pingRegistrar) Routes(r fiber.Router) {
	r.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	metrics, err := middleware.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	return New(Params{
		Cfg:        &config.AppConfig{AppName: "artifactd-test"},
		Log:        zerolog.Nop(),
		Metrics:    metrics,
		Registrars: []handler.Registrar{pingRegistrar{}},
	})
}

func TestNew_MountsRegistrars(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_RequestIDOnEveryResponse(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestNew_ErrorHandlerShapesUnknownRoutes(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		RequestID string `json:"request_id"`
		Error     struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, body.RequestID)
}
