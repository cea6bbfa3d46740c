package observability

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricType categorizes what is being measured.
type MetricType string

const (
	MetricRuns      MetricType = "runs"
	MetricQuality   MetricType = "quality"
	MetricCost      MetricType = "cost"
	MetricLatency   MetricType = "latency_ms"
	MetricFitness   MetricType = "fitness"
	MetricReflection MetricType = "reflection"
	MetricErrors    MetricType = "errors"
	MetricTokens    MetricType = "tokens"
)

// MetricPoint is a single recorded data point, kept locally so
// /tasks/summary-style endpoints can query recent history without
// standing up a metrics backend.
type MetricPoint struct {
	Type      MetricType `json:"type"`
	Value     float64    `json:"value"`
	Labels    Labels     `json:"labels,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Labels are key-value metadata on a metric.
type Labels map[string]string

// Metrics records run statistics, costs, and skill fitness. Every
// recorded value is pushed to an OpenTelemetry instrument (for external
// scraping/export) and kept in a bounded local ring buffer (for the
// process's own introspection endpoints, which have no scrape target to
// query back against).
type Metrics struct {
	mu       sync.RWMutex
	points   []MetricPoint
	maxSize  int
	counters map[string]int64

	meter      metric.Meter
	histograms map[MetricType]metric.Float64Histogram
	otelCounts map[string]metric.Int64Counter
}

// NewMetrics creates a collector with a max local ring-buffer size,
// recording into the given OpenTelemetry meter. Pass nil to use a no-op
// meter (tests, or a binary run without an exporter configured).
func NewMetrics(maxSize int, meter metric.Meter) *Metrics {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("sentinel")
	}
	m := &Metrics{
		points:     make([]MetricPoint, 0, maxSize),
		maxSize:    maxSize,
		counters:   make(map[string]int64),
		meter:      meter,
		histograms: make(map[MetricType]metric.Float64Histogram),
		otelCounts: make(map[string]metric.Int64Counter),
	}
	return m
}

func (m *Metrics) histogramFor(mt MetricType) metric.Float64Histogram {
	if h, ok := m.histograms[mt]; ok {
		return h
	}
	h, _ := m.meter.Float64Histogram("sentinel." + string(mt))
	m.histograms[mt] = h
	return h
}

func (m *Metrics) counterFor(name string) metric.Int64Counter {
	if c, ok := m.otelCounts[name]; ok {
		return c
	}
	c, _ := m.meter.Int64Counter("sentinel." + name)
	m.otelCounts[name] = c
	return c
}

// Record adds a metric data point, both locally and to the OTel histogram.
func (m *Metrics) Record(mt MetricType, value float64, labels Labels) {
	m.mu.Lock()
	defer m.mu.Unlock()

	point := MetricPoint{Type: mt, Value: value, Labels: labels, Timestamp: time.Now()}
	if len(m.points) >= m.maxSize {
		copy(m.points, m.points[1:])
		m.points[len(m.points)-1] = point
	} else {
		m.points = append(m.points, point)
	}

	attrs := attrsFromLabels(labels)
	m.histogramFor(mt).Record(context.Background(), value, metric.WithAttributes(attrs...))
}

// Increment increments a named counter, both locally and via OTel.
func (m *Metrics) Increment(name string) {
	m.IncrementBy(name, 1)
}

// IncrementBy increments a named counter by n.
func (m *Metrics) IncrementBy(name string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += n
	m.counterFor(name).Add(context.Background(), n)
}

// Counter returns the current value of a counter.
func (m *Metrics) Counter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

// Query returns metric points matching type and optional time window.
func (m *Metrics) Query(mt MetricType, since time.Time) []MetricPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []MetricPoint
	for _, p := range m.points {
		if p.Type != mt {
			continue
		}
		if !since.IsZero() && p.Timestamp.Before(since) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// QueryWithLabel returns points matching type and a label key=value.
func (m *Metrics) QueryWithLabel(mt MetricType, key, value string) []MetricPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []MetricPoint
	for _, p := range m.points {
		if p.Type != mt {
			continue
		}
		if p.Labels != nil && p.Labels[key] == value {
			result = append(result, p)
		}
	}
	return result
}

// Len returns the total number of recorded local points.
func (m *Metrics) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// Reset clears all local points and counters. It does not affect
// already-exported OTel instrument state.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = m.points[:0]
	m.counters = make(map[string]int64)
}

// Summary computes aggregate statistics for a metric type.
type Summary struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// Summarize returns aggregate statistics for a metric type.
func (m *Metrics) Summarize(mt MetricType, since time.Time) Summary {
	points := m.Query(mt, since)
	if len(points) == 0 {
		return Summary{}
	}

	values := make([]float64, len(points))
	sum := 0.0
	for i, p := range points {
		values[i] = p.Value
		sum += p.Value
	}
	sort.Float64s(values)

	return Summary{
		Count: len(values),
		Sum:   sum,
		Mean:  sum / float64(len(values)),
		Min:   values[0],
		Max:   values[len(values)-1],
		P50:   percentile(values, 0.50),
		P95:   percentile(values, 0.95),
	}
}

// Snapshot returns a copy of current counters.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		snap[k] = v
	}
	return snap
}

func attrsFromLabels(labels Labels) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
