package postgres

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/hackathon/internal/adapter/metrics"
)

var (
	ErrUnbound       = errors.New("database handle is not bound")
	ErrAlreadyBound  = errors.New("database handle is already bound")
	ErrSessionClosed = errors.New("database session is closed")
)

// Conn is a connection checked out of the pool. *pgxpool.Conn satisfies it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Release()
}

type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}

type pgxPool struct {
	pool *pgxpool.Pool
}

// NewPool adapts a pgx pool to the Pool interface.
func NewPool(pool *pgxpool.Pool) Pool {
	return pgxPool{pool: pool}
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (p pgxPool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p pgxPool) Close() { p.pool.Close() }

type binding struct {
	pool     Pool
	settings Settings
	metrics  *metrics.DatabaseMetrics
}

// Handle is the process-wide database proxy. The zero value is Unbound and
// ready to use; it is bound once and only read afterwards.
type Handle struct {
	bound atomic.Pointer[binding]
}

func NewHandle() *Handle {
	return &Handle{}
}

// Bind points the handle at pool. Rebinding is rejected with ErrAlreadyBound.
func (h *Handle) Bind(pool Pool, settings Settings) error {
	return h.bind(&binding{pool: pool, settings: settings})
}

func (h *Handle) bind(b *binding) error {
	if b.pool == nil {
		return errors.New("cannot bind database handle to a nil pool")
	}
	if !h.bound.CompareAndSwap(nil, b) {
		return ErrAlreadyBound
	}
	return nil
}

func (h *Handle) Bound() bool {
	return h.bound.Load() != nil
}

// Settings returns the parameters the handle was bound with.
func (h *Handle) Settings() (Settings, error) {
	b := h.bound.Load()
	if b == nil {
		return Settings{}, ErrUnbound
	}
	return b.settings, nil
}

// Ping checks that the database is reachable without holding a request session.
func (h *Handle) Ping(ctx context.Context) error {
	b := h.bound.Load()
	if b == nil {
		return ErrUnbound
	}
	return b.pool.Ping(ctx)
}

// Close shuts the underlying pool down. It is a no-op on an unbound handle.
func (h *Handle) Close() {
	if b := h.bound.Load(); b != nil {
		b.pool.Close()
	}
}

// NewSession returns a closed request-scoped session on h.
func (h *Handle) NewSession() *Session {
	return &Session{handle: h}
}
