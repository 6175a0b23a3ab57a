// Package server provides the HTTP serving layer built on gin with
// unified middleware and graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	httpopts "github.com/adityatadimeti/omnis/pkg/options/server/http"
)

// Manager owns the gin engine and the underlying http.Server lifecycle.
type Manager struct {
	opts            *httpopts.Options
	engine          *gin.Engine
	srv             *http.Server
	shutdownTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.shutdownTimeout = d
	}
}

// NewManager creates a server manager with the standard middleware chain:
// recovery, request ID, access log, plus the /healthz probe.
func NewManager(opts *httpopts.Options, mopts ...Option) *Manager {
	if opts == nil {
		opts = httpopts.NewOptions()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(Recovery(), RequestID(), AccessLog())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	m := &Manager{
		opts:            opts,
		engine:          engine,
		shutdownTimeout: 30 * time.Second,
	}

	for _, opt := range mopts {
		opt(m)
	}

	m.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      engine,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}

	return m
}

// Router returns the gin engine for route registration.
func (m *Manager) Router() *gin.Engine {
	return m.engine
}

// Run serves HTTP until the context is cancelled, then drains in-flight
// requests within the shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Infow("HTTP server listening", "addr", m.opts.Addr)
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	if err := m.srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err.Error())
		return err
	}

	logger.Info("HTTP server stopped")
	return <-errCh
}
