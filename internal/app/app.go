package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/hackathon/internal/adapter/httpserver"
	"github.com/pscheid92/hackathon/internal/adapter/metrics"
	"github.com/pscheid92/hackathon/internal/adapter/postgres"
	"github.com/pscheid92/hackathon/internal/models"
	"github.com/pscheid92/hackathon/internal/platform/config"
	"github.com/pscheid92/hackathon/internal/platform/logging"
	"github.com/pscheid92/hackathon/internal/routes"
)

// Application is the assembled server together with the resources it owns.
type Application struct {
	Config   *config.Config
	Server   *httpserver.Server
	Handle   *postgres.Handle
	Models   *models.Registry
	Registry *prometheus.Registry
}

type options struct {
	envFiles     []string
	clock        clockwork.Clock
	poolFactory  postgres.PoolFactory
	models       []models.Model
	healthChecks []routes.HealthCheck
}

type Option func(*options)

// WithEnvFiles replaces the default ".env" override file.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithPoolFactory replaces the pgx pool behind the database handle.
func WithPoolFactory(f postgres.PoolFactory) Option {
	return func(o *options) { o.poolFactory = f }
}

// WithModels replaces models.Definitions.
func WithModels(defs ...models.Model) Option {
	return func(o *options) { o.models = defs }
}

func WithHealthChecks(checks ...routes.HealthCheck) Option {
	return func(o *options) { o.healthChecks = checks }
}

// Create builds the application. Nothing connects to the database here; the
// first connection is made by the first request that needs one.
func Create(opts ...Option) (*Application, error) {
	o := options{
		clock:  clockwork.NewRealClock(),
		models: models.Definitions,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	reg := metrics.NewRegistry()
	srv := httpserver.NewServer(cfg,
		httpserver.WithClock(o.clock),
		httpserver.WithHTTPMetrics(metrics.NewHTTPMetrics(reg)),
	)

	handle := postgres.NewHandle()
	dbOpts := []postgres.Option{postgres.WithMetrics(metrics.NewDatabaseMetrics(reg))}
	if o.poolFactory != nil {
		dbOpts = append(dbOpts, postgres.WithPoolFactory(o.poolFactory))
	}
	if err := postgres.Initialize(srv, handle, dbOpts...); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	registry, err := models.Register(handle, o.models...)
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to register models: %w", err)
	}

	err = routes.Register(srv, routes.Deps{
		Handle:       handle,
		Registry:     registry,
		Gatherer:     reg,
		HealthChecks: o.healthChecks,
	})
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	srv.RegisterHealthRoute()

	return &Application{
		Config:   cfg,
		Server:   srv,
		Handle:   handle,
		Models:   registry,
		Registry: reg,
	}, nil
}

// Start serves until Shutdown is called.
func (a *Application) Start() error {
	return a.Server.Start()
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the database handle.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	a.Close()
	return err
}

// Close releases the database handle without stopping the server.
func (a *Application) Close() {
	a.Handle.Close()
}
