package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var databaseEnvKeys = []string{
	"DATABASE_NAME", "DATABASE_HOST", "DATABASE_PORT", "DATABASE_USER", "DATABASE_PASSWORD",
	"DATABASE_SSLMODE", "DATABASE_MAX_CONNS", "DATABASE_MAX_CONN_LIFETIME",
}

// unsetDatabaseEnv makes every DATABASE_* variable absent for the test.
func unsetDatabaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range databaseEnvKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

type fakeConn struct {
	mu       sync.Mutex
	released int
}

func (c *fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("fakeConn: Query not supported")
}

func (c *fakeConn) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (c *fakeConn) Ping(context.Context) error { return nil }

func (c *fakeConn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released++
}

func (c *fakeConn) Released() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

type fakePool struct {
	mu         sync.Mutex
	acquireErr error
	pingErr    error
	conns      []*fakeConn
	closed     bool
}

func (p *fakePool) Acquire(context.Context) (Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	c := &fakeConn{}
	p.conns = append(p.conns, c)
	return c, nil
}

func (p *fakePool) Ping(context.Context) error { return p.pingErr }

func (p *fakePool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePool) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Outstanding counts connections that were acquired and not yet released.
func (p *fakePool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.conns {
		if c.Released() == 0 {
			n++
		}
	}
	return n
}

type fakeApp struct {
	before   []func(context.Context) (context.Context, error)
	teardown []func(context.Context, error)
}

func (a *fakeApp) BeforeRequest(fn func(ctx context.Context) (context.Context, error)) {
	a.before = append(a.before, fn)
}

func (a *fakeApp) TeardownRequest(fn func(ctx context.Context, err error)) {
	a.teardown = append(a.teardown, fn)
}

// serve mimics the request-scope runner of the HTTP server.
func (a *fakeApp) serve(ctx context.Context, handler func(ctx context.Context) error) (err error) {
	defer func() {
		for _, fn := range a.teardown {
			fn(ctx, err)
		}
	}()

	for _, fn := range a.before {
		if ctx, err = fn(ctx); err != nil {
			return err
		}
	}
	return handler(ctx)
}

func fakePoolFactory(p *fakePool) Option {
	return WithPoolFactory(func(context.Context, *pgxpool.Config) (Pool, error) {
		return p, nil
	})
}
