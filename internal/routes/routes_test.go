package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/hackathon/internal/adapter/httpserver"
	"github.com/pscheid92/hackathon/internal/adapter/postgres"
	"github.com/pscheid92/hackathon/internal/models"
	"github.com/pscheid92/hackathon/internal/platform/config"
	"github.com/pscheid92/hackathon/internal/platform/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct{}

func (stubConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (stubConn) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (stubConn) Ping(context.Context) error { return nil }

func (stubConn) Release() {}

type stubPool struct {
	pingErr error
}

func (p *stubPool) Acquire(context.Context) (postgres.Conn, error) { return stubConn{}, nil }

func (p *stubPool) Ping(context.Context) error { return p.pingErr }

func (p *stubPool) Close() {}

func newServer(t *testing.T, clock clockwork.Clock) *httpserver.Server {
	t.Helper()
	cfg := &config.Config{
		AppEnv:          "test",
		Port:            "0",
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: time.Second,
	}
	return httpserver.NewServer(cfg, httpserver.WithClock(clock))
}

func boundHandle(t *testing.T, pool postgres.Pool) *postgres.Handle {
	t.Helper()
	h := postgres.NewHandle()
	require.NoError(t, h.Bind(pool, postgres.Settings{}))
	return h
}

func get(srv *httpserver.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRegister_RequiresServerAndHandle(t *testing.T) {
	assert.EqualError(t, Register(nil, Deps{Handle: postgres.NewHandle()}), "routes: server is nil")
	assert.EqualError(t, Register(newServer(t, clockwork.NewFakeClock()), Deps{}), "routes: database handle is nil")
}

func TestReadiness_Ready(t *testing.T) {
	clock := clockwork.NewFakeClock()
	srv := newServer(t, clock)
	require.NoError(t, Register(srv, Deps{Handle: boundHandle(t, &stubPool{})}))

	clock.Advance(90 * time.Second)
	rec := get(srv, "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","uptime":90}`, rec.Body.String())
}

func TestReadiness_DatabaseDown(t *testing.T) {
	srv := newServer(t, clockwork.NewFakeClock())
	h := boundHandle(t, &stubPool{pingErr: errors.New("connection refused")})
	require.NoError(t, Register(srv, Deps{Handle: h}))

	rec := get(srv, "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","failed_check":"postgres","error":"connection refused"}`, rec.Body.String())
}

func TestReadiness_UnboundHandle(t *testing.T) {
	srv := newServer(t, clockwork.NewFakeClock())
	require.NoError(t, Register(srv, Deps{Handle: postgres.NewHandle()}))

	rec := get(srv, "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"postgres"`)
}

func TestReadiness_ExtraChecksRunInOrder(t *testing.T) {
	srv := newServer(t, clockwork.NewFakeClock())
	h := boundHandle(t, &stubPool{})
	registry, err := models.Register(h)
	require.NoError(t, err)

	var ran []string
	require.NoError(t, Register(srv, Deps{
		Handle:   h,
		Registry: registry,
		HealthChecks: []HealthCheck{
			{Name: "cache", Check: func(context.Context) error {
				ran = append(ran, "cache")
				return errors.New("cache cold")
			}},
			{Name: "never", Check: func(context.Context) error {
				ran = append(ran, "never")
				return nil
			}},
		},
	}))

	rec := get(srv, "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"cache"`)
	assert.Equal(t, []string{"cache"}, ran)
}

func TestVersion(t *testing.T) {
	srv := newServer(t, clockwork.NewFakeClock())
	require.NoError(t, Register(srv, Deps{Handle: boundHandle(t, &stubPool{})}))

	rec := get(srv, "/version")

	require.Equal(t, http.StatusOK, rec.Code)
	var info version.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, version.Get(), info)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "routes_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := newServer(t, clockwork.NewFakeClock())
	require.NoError(t, Register(srv, Deps{Handle: boundHandle(t, &stubPool{}), Gatherer: reg}))

	rec := get(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "routes_test_total 1")
}

func TestMetrics_NotMountedWithoutGatherer(t *testing.T) {
	srv := newServer(t, clockwork.NewFakeClock())
	require.NoError(t, Register(srv, Deps{Handle: boundHandle(t, &stubPool{})}))

	assert.Equal(t, http.StatusNotFound, get(srv, "/metrics").Code)
}
