package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.DealsDiscovered.WithLabelValues("Shop").Add(5)
	m.DealsAdmitted.WithLabelValues("Shop").Inc()
	m.ProductFailures.WithLabelValues("Shop", "price_parse").Inc()
	m.ObserveRun(time.Now().Add(-2 * time.Second))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.DealsDiscovered.WithLabelValues("Shop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DealsAdmitted.WithLabelValues("Shop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProductFailures.WithLabelValues("Shop", "price_parse")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.PagesFetched.WithLabelValues("shop.example").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dealfinder_pages_fetched_total{domain="shop.example"} 1`)
}

func TestMetrics_DefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
