// Package server exposes a storage.Store as the marketplace JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"campusmarket/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	store         storage.Store
	afterShutdown []func()
}

// NewServer returns new Server struct with provided zap.SugaredLogger, storage.Store and options
func NewServer(logger *zap.SugaredLogger, store storage.Store, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("nil store")
	}

	h := &handler{
		logger: logger,
		store:  store,
	}

	c := &config{
		httpServer: &http.Server{
			Addr: ":9000",
		},
		handlers: h.routes(),
	}

	for _, opt := range opts {
		opt.apply(c)
	}

	applyLog(logger.Desugar()).apply(c)
	registerHandlers().apply(c)

	return &Server{
		logger:        logger,
		httpServer:    c.httpServer,
		store:         store,
		afterShutdown: c.afterShutdown,
	}, nil
}

// Handler returns the root http.Handler of the server
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		s.logger.Info("Shutting down HTTP server")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("s.httpServer.ListenAndServe: %w", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	s.logger.Info("Closing store")
	s.store.Close()
	s.logger.Info("Store is closed")

	return nil
}
