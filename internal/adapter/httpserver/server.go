package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dstilesr/mini-chats/internal/adapter/metrics"
	"github.com/dstilesr/mini-chats/internal/platform/config"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	websocketHandler http.Handler
	limits           *ConnectionLimits
	registry         *prometheus.Registry
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, clock clockwork.Clock, websocketHandler http.Handler, registry *prometheus.Registry, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		clock:            clock,
		websocketHandler: websocketHandler,
		limits:           NewConnectionLimits(int64(cfg.MaxConnections), cfg.MaxConnectionsPerIP),
		registry:         registry,
		httpMetrics:      metrics.NewHTTPMetrics(registry),
		healthChecks:     healthChecks,
		startTime:        clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the router, e.g. for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}
