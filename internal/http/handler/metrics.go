package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// MetricsHandler serves the Prometheus scrape endpoint for the app registry.
type MetricsHandler struct {
	gatherer prometheus.Gatherer
}

// NewMetricsHandler creates the handler for /metrics.
func NewMetricsHandler(g prometheus.Gatherer) *MetricsHandler {
	return &MetricsHandler{gatherer: g}
}

var _ Registrar = (*MetricsHandler)(nil)

// Routes mounts the scrape endpoint. promhttp only speaks net/http, so the
// handler is adapted into fasthttp once and reused for every scrape.
func (h *MetricsHandler) Routes(r fiber.Router) {
	scrape := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}),
	)
	r.Get("/metrics", func(c *fiber.Ctx) error {
		scrape(c.Context())
		return nil
	})
}
