package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/hackathon/internal/adapter/metrics"
	"github.com/pscheid92/hackathon/internal/platform/config"
)

// BeforeRequestFunc runs before the handler. The returned context replaces
// the request context, also when an error is returned.
type BeforeRequestFunc = func(ctx context.Context) (context.Context, error)

// TeardownFunc runs when the request scope ends, whatever the outcome. err
// is the error the scope ended with, nil on success.
type TeardownFunc = func(ctx context.Context, err error)

// Server is the application object: routes, middleware and request-scope
// hooks on top of echo. Hooks and routes are registered during startup,
// before Start is called.
type Server struct {
	echo   *echo.Echo
	config *config.Config

	clock     clockwork.Clock
	startTime time.Time

	httpMetrics *metrics.HTTPMetrics
	hookSkipper middleware.Skipper

	beforeRequest   []BeforeRequestFunc
	teardownRequest []TeardownFunc
}

type Option func(*Server)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

func WithHTTPMetrics(m *metrics.HTTPMetrics) Option {
	return func(s *Server) { s.httpMetrics = m }
}

// WithHookSkipper replaces the rule deciding which requests bypass the
// request-scope hooks. By default only probe endpoints do.
func WithHookSkipper(skipper middleware.Skipper) Option {
	return func(s *Server) { s.hookSkipper = skipper }
}

func NewServer(cfg *config.Config, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:        e,
		config:      cfg,
		clock:       clockwork.NewRealClock(),
		hookSkipper: isProbe,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.startTime = srv.clock.Now()

	srv.registerMiddleware()

	return srv
}

func isProbe(c echo.Context) bool {
	return metrics.IsProbePath(c.Path())
}

func (s *Server) BeforeRequest(fn func(ctx context.Context) (context.Context, error)) {
	s.beforeRequest = append(s.beforeRequest, fn)
}

func (s *Server) TeardownRequest(fn func(ctx context.Context, err error)) {
	s.teardownRequest = append(s.teardownRequest, fn)
}

func (s *Server) GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return s.echo.GET(path, h, m...)
}

func (s *Server) POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return s.echo.POST(path, h, m...)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

// Uptime reports how long ago the server was constructed.
func (s *Server) Uptime() time.Duration {
	return s.clock.Since(s.startTime)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
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
