package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks webhook dispatcher throughput and delivery latency.
type OutboxMetrics struct {
	delivered *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	failed    *prometheus.CounterVec
	exhausted prometheus.Counter
	latency   prometheus.Histogram
}

// NewOutboxMetrics registers dispatcher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_delivered_total",
		Help: "Webhook deliveries acknowledged by the receiver.",
	}, []string{"event_type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_skipped_total",
		Help: "Outbox messages marked processed without a delivery attempt.",
	}, []string{"reason"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Delivery attempts that ended in error.",
	}, []string{"event_type"})
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_exhausted_total",
		Help: "Messages that reached the retry ceiling.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_delivery_seconds",
		Help:    "Wall time of webhook delivery attempts.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(delivered, skipped, failed, exhausted, latency)
	return &OutboxMetrics{
		delivered: delivered,
		skipped:   skipped,
		failed:    failed,
		exhausted: exhausted,
		latency:   latency,
	}
}

// IncDelivered counts a successful delivery for the event type.
func (o *OutboxMetrics) IncDelivered(eventType string) {
	if o == nil || o.delivered == nil {
		return
	}
	o.delivered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncSkipped counts a message resolved without a network call.
func (o *OutboxMetrics) IncSkipped(reason string) {
	if o == nil || o.skipped == nil {
		return
	}
	o.skipped.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncFailed counts a failed delivery attempt for the event type.
func (o *OutboxMetrics) IncFailed(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncExhausted counts a message that hit the retry ceiling.
func (o *OutboxMetrics) IncExhausted() {
	if o == nil || o.exhausted == nil {
		return
	}
	o.exhausted.Inc()
}

// ObserveDelivery records the wall time of one delivery attempt.
func (o *OutboxMetrics) ObserveDelivery(duration time.Duration) {
	if o == nil || o.latency == nil {
		return
	}
	o.latency.Observe(duration.Seconds())
}
