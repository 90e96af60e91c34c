package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/platform/timeouts"
)

// Server serves an App over HTTP.
type Server struct {
	app        *App
	listener   net.Listener
	httpServer *http.Server
}

// NewServer listens on addr and prepares the HTTP server.
func NewServer(a *App, addr string) (*Server, error) {
	if a == nil {
		return nil, errors.New("app is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Server{
		app:      a,
		listener: listener,
		httpServer: &http.Server{
			Handler:           a.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve blocks until ctx ends or the server fails, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	s.app.logger.Info("http server listening", zap.String("addr", s.Addr()))
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		// Shutdown does not track hijacked websocket connections; end their streams.
		s.app.Hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
