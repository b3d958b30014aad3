package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollectorWith(prometheus.NewRegistry(), "test")

	c.RecordExchangeStarted("PLAIN", "client")
	c.RecordStep("PLAIN", "client")
	c.RecordStep("PLAIN", "client")
	c.RecordExchangeFinished("PLAIN", "client", "ok", 5*time.Millisecond)
	c.RecordExchangeFinished("LOGIN", "server", "failed", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ExchangesStarted.WithLabelValues("PLAIN", "client")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.StepsTotal.WithLabelValues("PLAIN", "client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ExchangesTotal.WithLabelValues("PLAIN", "client", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ExchangesTotal.WithLabelValues("LOGIN", "server", "failed")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	// Must not panic: sessions treat a nil collector as metrics-off.
	c.RecordExchangeStarted("PLAIN", "client")
	c.RecordStep("PLAIN", "client")
	c.RecordExchangeFinished("PLAIN", "client", "ok", 0)
}

func TestDefaultNamespace(t *testing.T) {
	c := NewCollectorWith(prometheus.NewRegistry(), "")
	assert.NotNil(t, c.ExchangesTotal)
}
