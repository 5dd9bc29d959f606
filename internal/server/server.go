// Package server provides the HTTP API for consultd.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/logging"
	"github.com/clinicore/consultd/internal/orchestrator"
	"github.com/clinicore/consultd/internal/store"
)

// Server exposes the consultation pipeline over HTTP. Writes that have
// pipeline consequences go through the orchestrator; plain reads and
// schedule creation hit the store directly.
type Server struct {
	echo    *echo.Echo
	store   store.Store
	orch    *orchestrator.Orchestrator
	limiter *ipLimiter
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Addr      string
	RateLimit float64 // requests per second per client IP, 0 disables
	RateBurst int
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(st store.Store, orch *orchestrator.Orchestrator, logger *zap.Logger, cfg *Config) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Addr: ":8080"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Propagate the request ID so store and dispatch logs
			// correlate with the access log line.
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

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

	s := &Server{
		echo:   e,
		store:  st,
		orch:   orch,
		logger: logger,
		config: cfg,
	}

	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit, cfg.RateBurst)
		e.Use(s.rateLimitMiddleware)
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/schedules", s.handleCreateSchedule)
	api.GET("/schedules", s.handleListSchedules)
	api.GET("/schedules/:id", s.handleGetSchedule)
	api.POST("/schedules/:id/recordings", s.handleCreateRecording)
	api.POST("/schedules/:id/report", s.handleRequestReport)
	api.GET("/schedules/:id/transcription", s.handleGetTranscription)
	api.GET("/schedules/:id/report", s.handleGetReport)
}

func (s *Server) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	return s.echo.Start(s.config.Addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
