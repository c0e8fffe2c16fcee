// Package routes attaches the application's endpoints to the server.
package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/hackathon/internal/adapter/httpserver"
	"github.com/pscheid92/hackathon/internal/adapter/metrics"
	"github.com/pscheid92/hackathon/internal/adapter/postgres"
	"github.com/pscheid92/hackathon/internal/models"
	"github.com/pscheid92/hackathon/internal/platform/version"
)

const readinessTimeout = 5 * time.Second

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the endpoints need. Registry, Gatherer and
// HealthChecks are optional.
type Deps struct {
	Handle       *postgres.Handle
	Registry     *models.Registry
	Gatherer     prometheus.Gatherer
	HealthChecks []HealthCheck
}

type routes struct {
	srv    *httpserver.Server
	checks []HealthCheck
}

// Register mounts the readiness, version and metrics endpoints on srv.
func Register(srv *httpserver.Server, deps Deps) error {
	if srv == nil {
		return errors.New("routes: server is nil")
	}
	if deps.Handle == nil {
		return errors.New("routes: database handle is nil")
	}

	r := &routes{srv: srv}
	r.checks = append(r.checks, HealthCheck{Name: "postgres", Check: deps.Handle.Ping})
	if deps.Registry != nil {
		r.checks = append(r.checks, HealthCheck{Name: "models", Check: deps.Registry.Verify})
	}
	r.checks = append(r.checks, deps.HealthChecks...)

	srv.GET("/health/ready", r.handleReadiness)
	srv.GET("/version", handleVersion)
	if deps.Gatherer != nil {
		srv.GET("/metrics", echo.WrapHandler(metrics.Handler(deps.Gatherer)))
	}
	return nil
}

func (r *routes) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	for _, check := range r.checks {
		if err := check.Check(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.Name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
		"uptime": r.srv.Uptime().Seconds(),
	})
}

func handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
