// Package metrics defines the custom Prometheus metrics of the ballot API.
// Metrics register with the default registry on import through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ballot"

// ── Verification codes ────────────────────────────────────────────────────────

// CodesIssuedTotal counts code issuance attempts.
// Label:
//   - result: "sent", "delivery_failed", "cooldown", "invalid" or "error"
var CodesIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "codes_issued_total",
		Help:      "Total number of verification code requests, by outcome.",
	},
	[]string{"result"},
)

// CodesVerifiedTotal counts verification attempts.
// Label:
//   - result: "ok", "rejected" or "error"
var CodesVerifiedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "codes_verified_total",
		Help:      "Total number of verification code submissions, by outcome.",
	},
	[]string{"result"},
)

// CodesPurgedTotal counts codes removed by the purge job.
var CodesPurgedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "codes_purged_total",
		Help:      "Total number of spent or expired codes removed.",
	},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// SessionsOpenedTotal counts established sessions.
// Label:
//   - role: role of the identity the session belongs to
var SessionsOpenedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_opened_total",
		Help:      "Total number of sessions established, by role.",
	},
	[]string{"role"},
)

// SessionsSweptTotal counts expired sessions and stale slots removed.
var SessionsSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Total number of expired sessions and stale session slots removed.",
	},
)

// ── Ballots ───────────────────────────────────────────────────────────────────

// BallotsCastTotal counts cast attempts.
// Label:
//   - result: "accepted", "already_voted" or "error"
var BallotsCastTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ballots_cast_total",
		Help:      "Total number of ballot cast attempts, by outcome.",
	},
	[]string{"result"},
)

// ── Notifications ─────────────────────────────────────────────────────────────

// NotificationsQueueDepth tracks confirmations waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var NotificationsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifications_queue_depth",
		Help:      "Current number of vote confirmations pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationsSentTotal counts delivered and failed confirmations.
// Label:
//   - result: "sent", "failed" or "dropped"
var NotificationsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of vote confirmations, by outcome.",
	},
	[]string{"result"},
)

// NotificationDuration measures a single confirmation delivery.
var NotificationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of a vote confirmation delivery.",
		Buckets:   prometheus.DefBuckets,
	},
)
