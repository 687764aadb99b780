package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records webhook and checkout outcomes.
type PipelineMetrics struct {
	webhookEvents   *prometheus.CounterVec
	settlements     *prometheus.CounterVec
	checkoutResults *prometheus.CounterVec
	checkoutLatency *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook deliveries by event type and result.",
	}, []string{"event_type", "result"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_settlements_total",
		Help: "Listing settlement outcomes.",
	}, []string{"result"})
	checkoutResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_results_total",
		Help: "Checkout saga outcomes by failing step (or ok).",
	}, []string{"step"})
	checkoutLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "End-to-end checkout saga duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	reg.MustRegister(webhookEvents, settlements, checkoutResults, checkoutLatency)
	return &PipelineMetrics{
		webhookEvents:   webhookEvents,
		settlements:     settlements,
		checkoutResults: checkoutResults,
		checkoutLatency: checkoutLatency,
	}
}

// IncWebhookEvent counts one webhook delivery outcome.
func (m *PipelineMetrics) IncWebhookEvent(eventType, result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// IncSettlement counts one settlement outcome.
func (m *PipelineMetrics) IncSettlement(result string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveCheckout records a finished checkout saga with its terminal step.
func (m *PipelineMetrics) ObserveCheckout(step string, duration time.Duration) {
	if m == nil {
		return
	}
	if m.checkoutResults != nil {
		m.checkoutResults.WithLabelValues(normalizeLabel(step)).Inc()
	}
	if m.checkoutLatency != nil {
		m.checkoutLatency.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
