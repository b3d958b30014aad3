// Package metrics exposes Prometheus instrumentation for SASL exchanges.
// Attaching a Collector to a session is optional; a nil Collector is a
// no-op on every method.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus metrics recorded by SASL sessions.
type Collector struct {
	ExchangesStarted *prometheus.CounterVec
	ExchangesTotal   *prometheus.CounterVec
	StepsTotal       *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered with the default Prometheus
// registry.
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace)
}

// NewCollectorWith creates a collector registered with reg. Tests pass a
// fresh registry to avoid duplicate-registration panics.
func NewCollectorWith(reg prometheus.Registerer, namespace string) *Collector {
	if namespace == "" {
		namespace = "sasl"
	}
	factory := promauto.With(reg)

	return &Collector{
		ExchangesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_started_total",
			Help:      "Total number of SASL exchanges started",
		}, []string{"mechanism", "role"}),
		ExchangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Total number of SASL exchanges finished, by outcome",
		}, []string{"mechanism", "role", "outcome"}),
		StepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of SASL steps taken",
		}, []string{"mechanism", "role"}),
		ExchangeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Wall-clock duration of finished SASL exchanges",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mechanism"}),
	}
}

// RecordExchangeStarted counts a new exchange.
func (c *Collector) RecordExchangeStarted(mechanism, role string) {
	if c == nil {
		return
	}
	c.ExchangesStarted.WithLabelValues(mechanism, role).Inc()
}

// RecordStep counts one mechanism step.
func (c *Collector) RecordStep(mechanism, role string) {
	if c == nil {
		return
	}
	c.StepsTotal.WithLabelValues(mechanism, role).Inc()
}

// RecordExchangeFinished counts a finished exchange and observes its
// duration. outcome is "ok" or "failed".
func (c *Collector) RecordExchangeFinished(mechanism, role, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ExchangesTotal.WithLabelValues(mechanism, role, outcome).Inc()
	c.ExchangeDuration.WithLabelValues(mechanism).Observe(elapsed.Seconds())
}
