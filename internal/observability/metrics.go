package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "viktor_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// TxRetries counts atomic units that were re-run after store contention.
	TxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viktor_tx_retries_total",
		Help: "Total number of transaction retries by operation",
	}, []string{"operation"})

	// ConstraintRaces counts uniqueness races resolved by re-reading the winner.
	ConstraintRaces = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viktor_constraint_races_total",
		Help: "Total number of resolved constraint races by operation",
	}, []string{"operation"})

	// LikeToggles counts committed like toggles by resulting direction.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viktor_like_toggles_total",
		Help: "Total number of like toggles by direction",
	}, []string{"direction"})

	// EventPublishErrors counts failed post-commit event publishes.
	EventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viktor_events_publish_errors_total",
		Help: "Total number of failed event publishes by channel kind",
	}, []string{"kind"})
)

// DatabaseMetrics records query latency for one repository.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance for table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}

// RecordLikeToggle counts a committed toggle.
func RecordLikeToggle(liked bool) {
	direction := "unlike"
	if liked {
		direction = "like"
	}
	LikeToggles.WithLabelValues(direction).Inc()
}
