package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout and order finalization activity.
type CheckoutMetrics struct {
	sessionsCreated *prometheus.CounterVec
	finalizeTotal   *prometheus.CounterVec
	finalizeSeconds *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessionsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Hosted checkout sessions created, by gateway environment.",
	}, []string{"environment"})
	finalizeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_finalize_total",
		Help: "Order finalization attempts by outcome (created, duplicate, error).",
	}, []string{"outcome", "source"})
	finalizeSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_finalize_duration_seconds",
		Help:    "Duration of order finalization in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_events_total",
		Help: "Gateway webhook deliveries by event type and result.",
	}, []string{"type", "result"})
	emailsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_emails_total",
		Help: "Order confirmation email attempts by result.",
	}, []string{"result"})
	reg.MustRegister(sessionsCreated, finalizeTotal, finalizeSeconds, webhookEvents, emailsSent)
	return &CheckoutMetrics{
		sessionsCreated: sessionsCreated,
		finalizeTotal:   finalizeTotal,
		finalizeSeconds: finalizeSeconds,
		webhookEvents:   webhookEvents,
		emailsSent:      emailsSent,
	}
}

// IncSessionCreated increments the session counter for the environment.
func (m *CheckoutMetrics) IncSessionCreated(environment string) {
	if m == nil || m.sessionsCreated == nil {
		return
	}
	m.sessionsCreated.WithLabelValues(normalizeLabel(environment)).Inc()
}

// IncFinalize increments the finalize counter for the outcome and source.
func (m *CheckoutMetrics) IncFinalize(outcome, source string) {
	if m == nil || m.finalizeTotal == nil {
		return
	}
	m.finalizeTotal.WithLabelValues(normalizeLabel(outcome), normalizeLabel(source)).Inc()
}

// ObserveFinalizeDuration records how long a finalization took.
func (m *CheckoutMetrics) ObserveFinalizeDuration(source string, duration time.Duration) {
	if m == nil || m.finalizeSeconds == nil {
		return
	}
	m.finalizeSeconds.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncWebhookEvent increments the webhook counter for the event type and result.
func (m *CheckoutMetrics) IncWebhookEvent(eventType, result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// IncEmail increments the email counter for the result.
func (m *CheckoutMetrics) IncEmail(result string) {
	if m == nil || m.emailsSent == nil {
		return
	}
	m.emailsSent.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
