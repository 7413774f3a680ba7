// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CommandsTotal counts command lifecycle transitions by outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeswitch_commands_total",
			Help: "Command lifecycle events.",
		},
		[]string{"outcome"},
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeswitch_alerts_total",
			Help: "Alerts raised, by type and whether the cooldown suppressed them.",
		},
		[]string{"alert_type", "outcome"},
	)

	FanoutEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeswitch_fanout_events_total",
			Help: "Notification events handed to the event bus.",
		},
		[]string{"type", "outcome"},
	)

	PushMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeswitch_push_messages_total",
			Help: "Alert push deliveries per installation, by outcome.",
		},
		[]string{"outcome"},
	)

	DBConnectionsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "homeswitch_db_connections_in_use",
		Help: "Database connections currently checked out of the pool.",
	})

	DBPoolWaitSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "homeswitch_db_pool_wait_seconds_total",
		Help: "Time spent waiting for a free database connection.",
	})
)

const (
	CommandSubmitted = "submitted"
	CommandConflict  = "conflict"
	CommandIssued    = "issued"
	CommandCompleted = "completed"
	CommandFailed    = "failed"
	CommandReaped    = "reaped"

	AlertAccepted  = "accepted"
	AlertDuplicate = "duplicate"

	FanoutPublished = "published"
	FanoutDropped   = "dropped"
	FanoutFailed    = "failed"

	PushSent     = "sent"
	PushFailed   = "failed"
	PushRejected = "rejected"
)

var registerOnce sync.Once

// MustRegister registers every collector with reg once per process.
func MustRegister(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			CommandsTotal,
			AlertsTotal,
			FanoutEventsTotal,
			PushMessagesTotal,
			DBConnectionsInUse,
			DBPoolWaitSeconds,
		)
	})
}
