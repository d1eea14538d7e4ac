// Package app is the composition root. It loads configuration, builds the
// root logger and the metrics registry, and wires every component into a
// canister container. main only runs what this package assembles.
package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"canister"
	"canister/canisterlog"
	"canister/internal/config"
	"canister/internal/logging"
)

// New builds the fully wired application container. The returned logger is
// the root logger, so callers can report failures that happen before the
// container lifecycle begins.
func New() (*canister.Container, zerolog.Logger, error) {
	cfg := config.Load()
	log := logging.New(cfg.Log, cfg.AppName)

	reg := prometheus.NewRegistry()

	c := canister.New(
		canister.WithLogger(canister.TeeLogger(
			canisterlog.New(log.With().Str("component", "container").Logger()),
			newContainerMetrics(reg),
		)),
		canister.WithShutdownTimeout(time.Duration(cfg.ShutdownTimeoutSec)*time.Second),
	)

	if err := c.ProvideValue(cfg); err != nil {
		return nil, log, err
	}
	if err := c.ProvideValue(log); err != nil {
		return nil, log, err
	}
	if err := c.ProvideValue(reg, canister.As(new(prometheus.Registerer), new(prometheus.Gatherer))); err != nil {
		return nil, log, err
	}
	if err := c.Apply(Modules()...); err != nil {
		return nil, log, err
	}

	return c, log, nil
}
