package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts payment webhook deliveries by event and outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twinhub_webhook_events_total",
		Help: "Payment webhook deliveries by event and outcome.",
	}, []string{"event", "outcome"})

	// ReconciliationAnomalies counts completed charges whose side effects
	// could not be fully applied and need manual reconciliation.
	ReconciliationAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twinhub_reconciliation_anomalies_total",
		Help: "Completed charges that require manual reconciliation.",
	})

	// SessionsSwept counts expired onboarding sessions removed by the GC job.
	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twinhub_onboarding_sessions_swept_total",
		Help: "Expired onboarding sessions deleted by the TTL sweep.",
	})
)
