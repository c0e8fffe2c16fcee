package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/hackathon/internal/adapter/metrics"
)

// App is the part of the application object Initialize needs: a way to run
// callbacks before each request and when each request scope ends.
type App interface {
	BeforeRequest(fn func(ctx context.Context) (context.Context, error))
	TeardownRequest(fn func(ctx context.Context, err error))
}

// PoolFactory creates the pool behind the handle.
type PoolFactory func(ctx context.Context, cfg *pgxpool.Config) (Pool, error)

type initOptions struct {
	metrics     *metrics.DatabaseMetrics
	poolFactory PoolFactory
}

type Option func(*initOptions)

// WithMetrics records session and query metrics.
func WithMetrics(m *metrics.DatabaseMetrics) Option {
	return func(o *initOptions) { o.metrics = m }
}

func WithPoolFactory(f PoolFactory) Option {
	return func(o *initOptions) { o.poolFactory = f }
}

func newPgxPool(ctx context.Context, cfg *pgxpool.Config) (Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return NewPool(pool), nil
}

// Initialize binds h to the database described by the DATABASE_* environment
// and installs the request hooks on app. Settings errors are returned before
// anything is bound or registered. The pool connects lazily, so an unreachable
// database surfaces on the first request instead of at startup.
func Initialize(app App, h *Handle, opts ...Option) error {
	o := initOptions{poolFactory: newPgxPool}
	for _, opt := range opts {
		opt(&o)
	}

	settings, err := LoadSettings()
	if err != nil {
		return err
	}

	poolCfg, err := settings.PoolConfig()
	if err != nil {
		return err
	}
	if o.metrics != nil {
		poolCfg.ConnConfig.Tracer = NewQueryTracer(o.metrics)
	}

	pool, err := o.poolFactory(context.Background(), poolCfg)
	if err != nil {
		return err
	}

	if err := h.bind(&binding{pool: pool, settings: settings, metrics: o.metrics}); err != nil {
		pool.Close()
		return err
	}

	app.BeforeRequest(h.connectHook)
	app.TeardownRequest(h.closeHook)

	slog.Info("Database handle bound", "database", settings)
	return nil
}

// connectHook opens the request's session, reusing one already in ctx.
func (h *Handle) connectHook(ctx context.Context) (context.Context, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		s = h.NewSession()
		ctx = WithSession(ctx, s)
	}
	if err := s.Connect(ctx); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func (h *Handle) closeHook(ctx context.Context, err error) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.IsClosed() {
		return
	}
	s.Close()
	if err != nil {
		slog.DebugContext(ctx, "Released database connection after failed request", "error", err)
	}
}
