package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Order book metrics
	// ============================================
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayer_orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relayer_orders_by_status",
			Help: "Current number of orders in each status",
		},
		[]string{"status"},
	)

	AssignmentAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_assignment_attempts_total",
			Help: "Assignment attempts by outcome (won, lost_race, expired, unavailable)",
		},
		[]string{"outcome"},
	)

	SecretsRevealed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayer_secrets_revealed_total",
		Help: "Total number of secrets uploaded by makers",
	})

	OrdersCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_orders_completed_total",
			Help: "Orders reaching a terminal status",
		},
		[]string{"status"},
	)

	StalledAssignments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_stalled_assignments",
		Help: "Assignments stuck at src_deployed past the destination timelock (resolver capital at risk)",
	})

	// ============================================
	// NATS telemetry metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_nats_events_published_total",
			Help: "Audit events mirrored to NATS",
		},
		[]string{"event_type"},
	)

	NATSEventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_nats_events_failed_total",
			Help: "Audit events that failed to publish to NATS",
		},
		[]string{"event_type"},
	)

	// ============================================
	// Resolver orchestrator metrics
	// ============================================
	EscrowDeployments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_escrow_deployments_total",
			Help: "Escrow deployments by chain and leg (src/dst)",
		},
		[]string{"chain", "leg"},
	)

	EscrowDeployFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_escrow_deploy_failures_total",
			Help: "Failed escrow deployments by chain and leg",
		},
		[]string{"chain", "leg"},
	)

	SourceClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_source_claims_total",
			Help: "Source escrow claims by outcome (success, failure)",
		},
		[]string{"outcome"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolver_scan_duration_seconds",
			Help:    "Duration of one orchestrator scan",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scan"},
	)

	ScansSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_scans_skipped_total",
			Help: "Scan ticks skipped because the previous one was still running",
		},
		[]string{"scan"},
	)
)
