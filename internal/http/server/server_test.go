package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"canister/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_StartServesAndStops(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	// Port 0 picks a free ephemeral port.
	srv := New(app, &config.AppConfig{Port: "0"}, zerolog.Nop())

	require.NoError(t, srv.Start(context.Background()))

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, srv.Stop(ctx))

	// The port is released after Stop.
	_, err = http.Get("http://" + srv.Addr() + "/ping")
	assert.Error(t, err)
}

func TestServer_StartFailsOnTakenPort(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	first := New(app, &config.AppConfig{Port: "0"}, zerolog.Nop())
	require.NoError(t, first.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		first.Stop(ctx)
	}()

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	second := New(fiber.New(fiber.Config{DisableStartupMessage: true}), &config.AppConfig{Port: port}, zerolog.Nop())
	err = second.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bind")
}

func TestServer_StopBeforeStart(t *testing.T) {
	srv := New(fiber.New(), &config.AppConfig{Port: "0"}, zerolog.Nop())
	assert.NoError(t, srv.Stop(context.Background()))
}
