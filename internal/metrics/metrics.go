package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the notification subsystem.
var (
	NotificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Durable notifications created, by type",
		},
		[]string{"type"},
	)

	LiveEventsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_events_sent_total",
			Help: "Events handed to connected session buffers",
		},
	)

	LiveEventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_events_dropped_total",
			Help: "Events dropped because a session buffer was full",
		},
	)

	LiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_sessions",
			Help: "Currently connected live sessions",
		},
	)

	CleanupDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cleanup_deleted_total",
			Help: "Notification rows deleted by the retention cleanup",
		},
	)

	CleanupRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_runs_total",
			Help: "Cleanup invocations, by outcome (run, skipped, error)",
		},
		[]string{"outcome"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		NotificationsCreatedTotal,
		LiveEventsSentTotal,
		LiveEventsDroppedTotal,
		LiveSessions,
		CleanupDeletedTotal,
		CleanupRunsTotal,
	)
}
