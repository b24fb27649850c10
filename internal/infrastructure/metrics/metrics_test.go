package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("/api/v1/analyze", "POST", "200", 50*time.Millisecond)
	m.ObserveHTTP("/api/v1/analyze", "POST", "200", 70*time.Millisecond)
	m.ObserveModelCall("vision", "OK", time.Second)
	m.ObserveModelCall("vision", "RATE_LIMITED", time.Millisecond)
	m.ListingGenerated("ebay", "structured")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/analyze", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelRequests.WithLabelValues("vision", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelRequests.WithLabelValues("vision", "RATE_LIMITED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listings.WithLabelValues("ebay", "structured")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("/health", "GET", "200", time.Millisecond)
		m.ObserveModelCall("text", "OK", time.Millisecond)
		m.ListingGenerated("generic", "raw")
	})
}
