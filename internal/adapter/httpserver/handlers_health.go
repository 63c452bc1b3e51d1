package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dstilesr/mini-chats/internal/dispatch"
	"github.com/dstilesr/mini-chats/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const readinessProbeTimeout = 2 * time.Second

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Relay is the part of the dispatcher the health endpoints look at.
type Relay interface {
	Stats(ctx context.Context) (dispatch.Stats, error)
	QueueDepth() int
	Backlogged() bool
}

// RelayHealthChecks reports not ready when the dispatcher loop stops answering
// or its command queue backs up.
func RelayHealthChecks(r Relay) []HealthCheck {
	return []HealthCheck{
		{
			Name: "dispatcher",
			Check: func(ctx context.Context) error {
				if _, err := r.Stats(ctx); err != nil {
					return fmt.Errorf("dispatcher not responding: %w", err)
				}
				return nil
			},
		},
		{
			Name: "command_queue",
			Check: func(context.Context) error {
				if r.Backlogged() {
					return fmt.Errorf("command queue backlogged: %d pending", r.QueueDepth())
				}
				return nil
			},
		},
	}
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status":      "ok",
		"uptime":      s.clock.Since(s.startTime).Seconds(),
		"connections": s.limits.global.Current(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	for _, hc := range s.healthChecks {
		err := hc.Check(ctx)
		if err == nil {
			continue
		}

		response := map[string]any{
			"status":       "unhealthy",
			"failed_check": hc.Name,
			"error":        err.Error(),
		}
		if err := c.JSON(http.StatusServiceUnavailable, response); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ready"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
