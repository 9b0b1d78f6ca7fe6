package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EvidenceSubmitted   prometheus.Counter
	EvidenceRejected    *prometheus.CounterVec
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	SweepRuns           prometheus.Counter
	SweepErrors         prometheus.Counter
	ProfilesBlocked     prometheus.Counter
	SweepDuration       prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EvidenceSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "preuvio_evidence_submissions_total",
			Help: "Total number of evidence documents accepted by the intake.",
		}),
		EvidenceRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "preuvio_evidence_rejections_total",
			Help: "Intake rejections by reason.",
		}, []string{"reason"}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "preuvio_notifications_sent_total",
			Help: "Notifications successfully handed to the email provider.",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "preuvio_notifications_failed_total",
			Help: "Notifications the email provider rejected.",
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "preuvio_sweep_runs_total",
			Help: "Completed expiration sweep invocations.",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "preuvio_sweep_errors_total",
			Help: "Per-evidence errors isolated during sweeps.",
		}),
		ProfilesBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "preuvio_profiles_blocked_total",
			Help: "Profiles auto-blocked by expired required documents.",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "preuvio_sweep_duration_seconds",
			Help:    "Wall time of expiration sweep invocations.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveSweep records one sweep invocation.
func (m *Metrics) ObserveSweep(d time.Duration, errs int) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepDuration.Observe(d.Seconds())
	m.SweepErrors.Add(float64(errs))
}

// IncEvidenceRejected records an intake rejection by reason label.
func (m *Metrics) IncEvidenceRejected(reason string) {
	if m == nil {
		return
	}
	m.EvidenceRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncEvidenceSubmitted() {
	if m == nil {
		return
	}
	m.EvidenceSubmitted.Inc()
}

func (m *Metrics) IncNotificationsSent() {
	if m == nil {
		return
	}
	m.NotificationsSent.Inc()
}

func (m *Metrics) IncNotificationsFailed() {
	if m == nil {
		return
	}
	m.NotificationsFailed.Inc()
}

func (m *Metrics) IncProfilesBlocked() {
	if m == nil {
		return
	}
	m.ProfilesBlocked.Inc()
}
