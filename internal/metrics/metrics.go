// AngelaMos | 2026
// metrics.go

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studentshelf"

// Metrics is safe to use as a nil pointer; every method then does nothing.
type Metrics struct {
	Purchases         *prometheus.CounterVec
	Downloads         *prometheus.CounterVec
	Verifications     *prometheus.CounterVec
	SweepRuns         *prometheus.CounterVec
	SweepRecords      *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	RateLimits        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Purchases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase lifecycle events by outcome and buyer class",
		}, []string{"outcome", "buyer_class"}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download attempts by result",
		}, []string{"result"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "student_transitions_total",
			Help:      "Student verification transitions by target state",
		}, []string{"transition"}),
		SweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_sweeps_total",
			Help:      "Conversion sweeps by trigger and result",
		}, []string{"trigger", "result"}),
		SweepRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_records_total",
			Help:      "Records processed by conversion sweeps",
		}, []string{"outcome"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_sweep_duration_seconds",
			Help:      "Wall time of conversion sweeps",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		RateLimits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions by bucket",
		}, []string{"bucket", "allowed"}),
	}
}

func (m *Metrics) PurchaseEvent(outcome, buyerClass string) {
	if m == nil {
		return
	}
	m.Purchases.WithLabelValues(outcome, buyerClass).Inc()
}

func (m *Metrics) Download(granted bool) {
	if m == nil {
		return
	}
	result := "denied"
	if granted {
		result = "granted"
	}
	m.Downloads.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(name string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(name).Inc()
}

func (m *Metrics) Sweep(trigger, result string, converted, skipped, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SweepRuns.WithLabelValues(trigger, result).Inc()
	m.SweepRecords.WithLabelValues("converted").Add(float64(converted))
	m.SweepRecords.WithLabelValues("skipped").Add(float64(skipped))
	m.SweepRecords.WithLabelValues("failed").Add(float64(failed))
	m.SweepDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimitDecision(bucket string, allowed bool) {
	if m == nil {
		return
	}
	label := "false"
	if allowed {
		label = "true"
	}
	m.RateLimits.WithLabelValues(bucket, label).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
