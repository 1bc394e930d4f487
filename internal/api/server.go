// Package api exposes the intake engine over HTTP: program catalog
// browsing, one-shot validation, the session dialogue endpoints, and
// the audit trail, with request metrics and per-client rate limiting
// on session creation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openintake/intaked/internal/dialogue"
	"github.com/openintake/intaked/internal/schema"
)

const serviceName = "intaked"

// Server serves the intake API.
type Server struct {
	echo     *echo.Echo
	engine   dialogue.Service
	registry *schema.Registry
	logger   *zap.Logger
	config   *Config
	limiter  *ipLimiter
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// ShutdownTimeout bounds graceful shutdown once Start's context is
	// cancelled.
	ShutdownTimeout time.Duration

	// SessionRate caps new-session creation per client IP, in sessions
	// per second. SessionBurst is the bucket size.
	SessionRate  float64
	SessionBurst int
}

// DefaultConfig returns the server defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		SessionRate:     5,
		SessionBurst:    10,
	}
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(engine dialogue.Service, registry *schema.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("dialogue engine cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("schema registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.SessionRate <= 0 {
		cfg.SessionRate = defaults.SessionRate
	}
	if cfg.SessionBurst <= 0 {
		cfg.SessionBurst = defaults.SessionBurst
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())

	s := &Server{
		echo:     e,
		engine:   engine,
		registry: registry,
		logger:   logger,
		config:   cfg,
		limiter:  newIPLimiter(rate.Limit(cfg.SessionRate), cfg.SessionBurst),
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/programs", s.handlePrograms)
	v1.GET("/programs/:id/schema", s.handleProgramSchema)
	v1.POST("/validate", s.handleValidate)
	v1.POST("/sessions", s.handleStartSession, s.limiter.Middleware())
	v1.POST("/sessions/:id/answers", s.handleAnswers)
	v1.POST("/sessions/:id/cancel", s.handleCancel)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.GET("/sessions/:id/audit", s.handleAuditTrail)
}

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully within the configured timeout. Returns
// http.ErrServerClosed on graceful shutdown, any other error on
// startup or shutdown failure.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		return http.ErrServerClosed
	}
}

// Shutdown stops the server outside the Start lifecycle.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for registering additional
// routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
