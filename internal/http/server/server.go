package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"canister/internal/config"
)

// Server runs the Fiber app as a container-managed component. Start binds the
// listener synchronously so a taken port fails startup, then serves in the
// background; Stop drains in-flight requests within the shutdown deadline.
type Server struct {
	app  *fiber.App
	addr string
	log  zerolog.Logger

	ln       net.Listener
	serveErr chan error
}

// New creates the HTTP server component.
func New(app *fiber.App, cfg *config.AppConfig, log zerolog.Logger) *Server {
	return &Server{
		app:      app,
		addr:     ":" + cfg.Port,
		log:      log.With().Str("component", "http").Logger(),
		serveErr: make(chan error, 1),
	}
}

// Start binds the port and begins serving.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.addr, err)
	}
	s.ln = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")

	go func() {
		s.serveErr <- s.app.Listener(ln)
	}()
	return nil
}

// Stop drains connections until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.ln == nil {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	select {
	case err := <-s.serveErr:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	default:
		// Serve goroutine has not returned yet; shutdown already drained.
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

// Addr returns the bound listener address, or the configured address before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}
