// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every pipeline metric.
const Namespace = "content_pipeline"

// Metrics holds the pipeline counters. A nil *Metrics is a valid no-op
// recorder, so tests can skip registration entirely.
type Metrics struct {
	ItemsAggregated   *prometheus.CounterVec
	CurationFallbacks *prometheus.CounterVec
	DigestsPosted     *prometheus.CounterVec
	DigestsSkipped    *prometheus.CounterVec
	GatewayErrors     prometheus.Counter
}

// New registers the pipeline metrics with reg. A nil reg falls back to the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ItemsAggregated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_aggregated_total",
			Help:      "Content items returned by aggregation, by category.",
		}, []string{"category"}),
		CurationFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "curation_fallbacks_total",
			Help:      "Curation passes that degraded to the deterministic fallback.",
		}, []string{"reason"}),
		DigestsPosted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "digests_posted_total",
			Help:      "Scheduled digests posted to the messaging gateway.",
		}, []string{"category"}),
		DigestsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "digests_skipped_total",
			Help:      "Scheduled digests skipped because nothing was worth posting.",
		}, []string{"category"}),
		GatewayErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "gateway_errors_total",
			Help:      "Messaging gateway posts that failed.",
		}),
	}
}

// RecordItemsAggregated adds count aggregated items for category.
func (m *Metrics) RecordItemsAggregated(category string, count int) {
	if m == nil {
		return
	}
	m.ItemsAggregated.WithLabelValues(category).Add(float64(count))
}

// RecordCurationFallback counts one degraded curation pass.
func (m *Metrics) RecordCurationFallback(reason string) {
	if m == nil {
		return
	}
	m.CurationFallbacks.WithLabelValues(reason).Inc()
}

// RecordDigestPosted counts one posted digest.
func (m *Metrics) RecordDigestPosted(category string) {
	if m == nil {
		return
	}
	m.DigestsPosted.WithLabelValues(category).Inc()
}

// RecordDigestSkipped counts one skipped digest.
func (m *Metrics) RecordDigestSkipped(category string) {
	if m == nil {
		return
	}
	m.DigestsSkipped.WithLabelValues(category).Inc()
}

// RecordGatewayError counts one failed gateway post.
func (m *Metrics) RecordGatewayError() {
	if m == nil {
		return
	}
	m.GatewayErrors.Inc()
}
