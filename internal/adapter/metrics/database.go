package metrics

import "github.com/prometheus/client_golang/prometheus"

// DatabaseMetrics tracks request-scoped connection usage and query timings.
type DatabaseMetrics struct {
	QueryDuration  *prometheus.HistogramVec
	QueryErrors    *prometheus.CounterVec
	Acquires       prometheus.Counter
	AcquireErrors  prometheus.Counter
	OpenSessions   prometheus.Gauge
	SessionsClosed prometheus.Counter
}

func NewDatabaseMetrics(reg prometheus.Registerer) *DatabaseMetrics {
	m := &DatabaseMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds, by statement verb.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"query"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of failed database queries, by statement verb.",
		}, []string{"query"}),
		Acquires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connection_acquires_total",
			Help:      "Total number of connections acquired for request scopes.",
		}),
		AcquireErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connection_acquire_errors_total",
			Help:      "Total number of failed connection acquisitions.",
		}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "open_sessions",
			Help:      "Number of request scopes currently holding a connection.",
		}),
		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "sessions_closed_total",
			Help:      "Total number of request-scoped connections released.",
		}),
	}

	reg.MustRegister(m.QueryDuration, m.QueryErrors, m.Acquires, m.AcquireErrors, m.OpenSessions, m.SessionsClosed)
	return m
}
