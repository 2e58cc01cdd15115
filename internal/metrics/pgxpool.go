package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPoolMetrics exposes connection pool statistics for the named
// process (core-api, worker) as Prometheus gauges.
func RegisterPoolMetrics(reg prometheus.Registerer, component string, pool *pgxpool.Pool) {
	labels := prometheus.Labels{"component": component}
	stat := func(f func(*pgxpool.Stat) float64) func() float64 {
		return func() float64 { return f(pool.Stat()) }
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "sitebuilder_db_acquired_conns",
			Help:        "Number of currently acquired connections in the pool",
			ConstLabels: labels,
		}, stat(func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "sitebuilder_db_max_conns",
			Help:        "Maximum number of connections in the pool",
			ConstLabels: labels,
		}, stat(func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "sitebuilder_db_idle_conns",
			Help:        "Number of idle connections in the pool",
			ConstLabels: labels,
		}, stat(func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "sitebuilder_db_acquire_total",
			Help:        "Cumulative count of successful connection acquires",
			ConstLabels: labels,
		}, stat(func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) })),
	)
}
