package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dreschagin/asset-server/pkg/config"
)

// ErrAddressInUse is returned by Listen when another process holds the port.
var ErrAddressInUse = errors.New("address already in use")

// State is the lifecycle position of a Server. It only moves forward.
type State int32

const (
	StateStarting State = iota
	StateServing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Server binds a listener and serves a handler until its context ends.
type Server struct {
	name            string
	httpServer      *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	logger          *slog.Logger
	state           atomic.Int32
}

func New(name string, cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		name: name,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Listen binds the TCP socket without serving yet.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%s listen on %s: %w: %w", s.name, s.httpServer.Addr, ErrAddressInUse, err)
		}
		return fmt.Errorf("%s listen on %s: %w", s.name, s.httpServer.Addr, err)
	}

	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Listen.
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Close releases a listener that was bound but never served.
func (s *Server) Close() error {
	if s.listener == nil || s.State() != StateStarting {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	s.state.Store(int32(StateStopped))
	return err
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Serve blocks until ctx is done, then drains in-flight requests for up to
// the shutdown timeout and closes whatever is left.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		s.state.Store(int32(StateStopped))
		return err
	}

	serveErr := make(chan error, 1)
	s.state.Store(int32(StateServing))
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()
	s.logger.Info("server started", "server", s.name, "addr", s.listener.Addr().String())

	select {
	case err := <-serveErr:
		s.state.Store(int32(StateStopped))
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s serve: %w", s.name, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received", "server", s.name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	shutdownErr := s.httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		s.logger.Error("graceful shutdown failed, closing connections", "server", s.name, "error", shutdownErr)
		_ = s.httpServer.Close()
	}

	<-serveErr
	s.state.Store(int32(StateStopped))

	if shutdownErr != nil && !errors.Is(shutdownErr, context.DeadlineExceeded) {
		return fmt.Errorf("%s shutdown: %w", s.name, shutdownErr)
	}
	return nil
}
