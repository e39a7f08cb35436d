// Package metrics defines and registers all custom Prometheus metrics for the
// ASGR account service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "asgr"

// Result label values shared by the account counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ── Account lifecycle metrics ─────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "email_taken", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of account registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "disabled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// EmailConfirmationsTotal counts confirmation link redemptions.
// Label:
//   - result: "success", "not_found", "consumed" or "error"
var EmailConfirmationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_confirmations_total",
		Help:      "Total number of email confirmation attempts, by result.",
	},
	[]string{"result"},
)

// PasswordChangesTotal counts password rotation attempts.
var PasswordChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Total number of password change attempts, by result.",
	},
	[]string{"result"},
)

// AuditWriteFailuresTotal counts audit appends that failed after the business
// operation had already succeeded.
// Label:
//   - event_type: e.g. "new_user_account", "log_in"
var AuditWriteFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Total number of audit records that could not be written.",
	},
	[]string{"event_type"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailDispatchTotal counts confirmation mail deliveries.
// Label:
//   - result: "sent", "failed" or "dropped" (queue full)
var MailDispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_dispatch_total",
		Help:      "Total number of confirmation mails handled by the dispatcher, by result.",
	},
	[]string{"result"},
)

// MailQueueDepth tracks the number of mail jobs waiting in each worker channel.
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of mail jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// PasswordHashDuration measures bcrypt hashing time.
var PasswordHashDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hash computations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
)
