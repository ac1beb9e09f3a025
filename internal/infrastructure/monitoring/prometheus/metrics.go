package prometheus

import (
	"strconv"
	"time"
)

// FragmentationMetrics holds the series exported by every molfrag surface.
type FragmentationMetrics struct {
	RequestsTotal       CounterVec
	RequestDuration     HistogramVec
	FragmentSetsTotal   CounterVec
	CacheAccessTotal    CounterVec
	WorkerMessagesTotal CounterVec
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPInFlight        GaugeVec
}

// DefaultFragmentDurationBuckets covers sub-millisecond small molecules up to
// multi-second lipids with every rule enabled.
var DefaultFragmentDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// NewFragmentationMetrics registers all series on collector.
func NewFragmentationMetrics(collector MetricsCollector) *FragmentationMetrics {
	return &FragmentationMetrics{
		RequestsTotal: collector.RegisterCounter("fragment_requests_total",
			"Fragmentation requests by source and outcome", "source", "status"),
		RequestDuration: collector.RegisterHistogram("fragment_duration_seconds",
			"Fragmentation latency", DefaultFragmentDurationBuckets, "source"),
		FragmentSetsTotal: collector.RegisterCounter("fragment_sets_total",
			"Fragment sets produced by rule and validation outcome", "rule", "outcome"),
		CacheAccessTotal: collector.RegisterCounter("fragment_cache_total",
			"Result cache lookups by result", "result"),
		WorkerMessagesTotal: collector.RegisterCounter("fragment_worker_messages_total",
			"Kafka messages handled by the batch worker", "status"),
		HTTPRequestsTotal: collector.RegisterCounter("http_requests_total",
			"HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds",
			"HTTP request latency", nil, "method", "path"),
		HTTPInFlight: collector.RegisterGauge("http_in_flight_requests",
			"HTTP requests being served", "path"),
	}
}

// FragmentTimer starts timing one fragmentation request into
// fragment_duration_seconds. On nil metrics the timer only measures.
func (m *FragmentationMetrics) FragmentTimer(source string) *Timer {
	if m == nil {
		return NewTimer(nil)
	}
	return NewTimer(m.RequestDuration.WithLabelValues(source))
}

// RecordFragmentation counts one fragmentation request by outcome.
func (m *FragmentationMetrics) RecordFragmentation(source string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(source, status).Inc()
}

// RecordFragmentSets adds accepted and rejected counts for rule.
func (m *FragmentationMetrics) RecordFragmentSets(rule string, accepted, rejected int) {
	if m == nil {
		return
	}
	if accepted > 0 {
		m.FragmentSetsTotal.WithLabelValues(rule, "accepted").Add(float64(accepted))
	}
	if rejected > 0 {
		m.FragmentSetsTotal.WithLabelValues(rule, "rejected").Add(float64(rejected))
	}
}

// RecordCacheAccess records a cache lookup; result is hit, miss or error.
func (m *FragmentationMetrics) RecordCacheAccess(result string) {
	if m == nil {
		return
	}
	m.CacheAccessTotal.WithLabelValues(result).Inc()
}

// RecordWorkerMessage records a worker outcome: processed, failed or dead_lettered.
func (m *FragmentationMetrics) RecordWorkerMessage(status string) {
	if m == nil {
		return
	}
	m.WorkerMessagesTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func (m *FragmentationMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge for path and returns the
// matching decrement.
func (m *FragmentationMetrics) TrackInFlight(path string) func() {
	if m == nil {
		return func() {}
	}
	g := m.HTTPInFlight.WithLabelValues(path)
	g.Inc()
	return g.Dec
}
