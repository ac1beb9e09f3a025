package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)
}

func TestNewMetricsCollector_RuntimeCollectors(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "rt", EnableGoMetrics: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter_ExposesSeries(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("events_total", "events", "kind").WithLabelValues("a").Add(3)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_events_total{kind="a"} 3`)
}

func TestRegisterCounter_DuplicateSharesSeries(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "dup", "k").WithLabelValues("x").Inc()
	c.RegisterCounter("dup_total", "dup", "k").WithLabelValues("x").Inc()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_dup_total{k="x"} 2`)
}

func TestRegister_TypeMismatchFallsBackToNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("clash", "clash")
	g := c.RegisterGauge("clash", "clash")
	assert.NotPanics(t, func() { g.WithLabelValues().Set(4) })
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("inflight", "in flight", "path")
	g.WithLabelValues("/x").Inc()
	g.WithLabelValues("/x").Inc()
	g.WithLabelValues("/x").Dec()

	h := c.RegisterHistogram("latency_seconds", "latency", []float64{0.1, 1}, "op")
	h.WithLabelValues("frag").Observe(0.05)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_inflight{path="/x"} 1`)
	assert.Contains(t, out, `test_unit_latency_seconds_bucket{op="frag",le="0.1"} 1`)
	assert.Contains(t, out, `test_unit_latency_seconds_count{op="frag"} 1`)
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("timer_seconds", "timer", nil)
	d := NewTimer(h.WithLabelValues()).ObserveDuration()
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_timer_seconds_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}
