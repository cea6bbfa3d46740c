package observability

import (
	"math"
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(100, nil)
	if m.Len() != 0 {
		t.Errorf("Len = %d", m.Len())
	}
}

func TestNewMetrics_ZeroSize(t *testing.T) {
	m := NewMetrics(0, nil)
	if m.maxSize != 10000 {
		t.Errorf("maxSize = %d, want 10000", m.maxSize)
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(100, nil)
	m.Record(MetricQuality, 0.85, Labels{"task": "t1"})
	m.Record(MetricQuality, 0.90, Labels{"task": "t2"})
	m.Record(MetricCost, 0.003, nil)

	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}
}

func TestMetrics_Record_RingBuffer(t *testing.T) {
	m := NewMetrics(3, nil)

	for i := 0; i < 5; i++ {
		m.Record(MetricRuns, float64(i), nil)
	}

	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}

	points := m.Query(MetricRuns, time.Time{})
	if len(points) != 3 {
		t.Fatalf("Query = %d, want 3", len(points))
	}
	if points[0].Value != 2 {
		t.Errorf("oldest = %f, want 2", points[0].Value)
	}
	if points[2].Value != 4 {
		t.Errorf("newest = %f, want 4", points[2].Value)
	}
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics(100, nil)

	m.Increment("runs")
	m.Increment("runs")
	m.Increment("errors")
	m.IncrementBy("cost_micros", 300)

	if m.Counter("runs") != 2 {
		t.Errorf("runs = %d", m.Counter("runs"))
	}
	if m.Counter("errors") != 1 {
		t.Errorf("errors = %d", m.Counter("errors"))
	}
	if m.Counter("cost_micros") != 300 {
		t.Errorf("cost_micros = %d", m.Counter("cost_micros"))
	}
	if m.Counter("missing") != 0 {
		t.Errorf("missing counter = %d", m.Counter("missing"))
	}
}

func TestMetrics_Query(t *testing.T) {
	m := NewMetrics(100, nil)
	m.Record(MetricQuality, 0.8, nil)
	m.Record(MetricCost, 0.01, nil)
	m.Record(MetricQuality, 0.9, nil)

	qPoints := m.Query(MetricQuality, time.Time{})
	if len(qPoints) != 2 {
		t.Errorf("quality points = %d, want 2", len(qPoints))
	}

	cPoints := m.Query(MetricCost, time.Time{})
	if len(cPoints) != 1 {
		t.Errorf("cost points = %d, want 1", len(cPoints))
	}
}

func TestMetrics_Query_TimeSince(t *testing.T) {
	m := NewMetrics(100, nil)

	m.Record(MetricQuality, 0.5, nil)
	midpoint := time.Now()
	time.Sleep(2 * time.Millisecond)
	m.Record(MetricQuality, 0.9, nil)

	recent := m.Query(MetricQuality, midpoint)
	if len(recent) != 1 {
		t.Errorf("recent = %d, want 1", len(recent))
	}
	if len(recent) > 0 && recent[0].Value != 0.9 {
		t.Errorf("recent value = %f", recent[0].Value)
	}
}

func TestMetrics_QueryWithLabel(t *testing.T) {
	m := NewMetrics(100, nil)
	m.Record(MetricFitness, 0.8, Labels{"skill_id": "sk_1"})
	m.Record(MetricFitness, 0.6, Labels{"skill_id": "sk_2"})
	m.Record(MetricFitness, 0.9, Labels{"skill_id": "sk_1"})
	m.Record(MetricFitness, 0.7, nil)

	results := m.QueryWithLabel(MetricFitness, "skill_id", "sk_1")
	if len(results) != 2 {
		t.Errorf("sk_1 results = %d, want 2", len(results))
	}
}

func TestMetrics_Summarize(t *testing.T) {
	m := NewMetrics(100, nil)
	for i := 1; i <= 10; i++ {
		m.Record(MetricQuality, float64(i)/10, nil)
	}

	s := m.Summarize(MetricQuality, time.Time{})
	if s.Count != 10 {
		t.Errorf("Count = %d", s.Count)
	}
	if math.Abs(s.Mean-0.55) > 0.001 {
		t.Errorf("Mean = %f, want ~0.55", s.Mean)
	}
	if s.Min != 0.1 {
		t.Errorf("Min = %f", s.Min)
	}
	if s.Max != 1.0 {
		t.Errorf("Max = %f", s.Max)
	}
	if math.Abs(s.P50-0.55) > 0.01 {
		t.Errorf("P50 = %f, want ~0.55", s.P50)
	}
	if s.P95 < 0.9 {
		t.Errorf("P95 = %f, too low", s.P95)
	}
}

func TestMetrics_Summarize_Empty(t *testing.T) {
	m := NewMetrics(100, nil)
	s := m.Summarize(MetricQuality, time.Time{})
	if s.Count != 0 {
		t.Errorf("Count = %d", s.Count)
	}
}

func TestMetrics_Summarize_SinglePoint(t *testing.T) {
	m := NewMetrics(100, nil)
	m.Record(MetricCost, 0.42, nil)

	s := m.Summarize(MetricCost, time.Time{})
	if s.Count != 1 {
		t.Errorf("Count = %d", s.Count)
	}
	if s.Mean != 0.42 {
		t.Errorf("Mean = %f", s.Mean)
	}
	if s.P50 != 0.42 {
		t.Errorf("P50 = %f", s.P50)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics(100, nil)
	m.Record(MetricQuality, 0.5, nil)
	m.Increment("runs")

	m.Reset()
	if m.Len() != 0 {
		t.Errorf("Len after reset = %d", m.Len())
	}
	if m.Counter("runs") != 0 {
		t.Errorf("Counter after reset = %d", m.Counter("runs"))
	}
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics(100, nil)
	m.Increment("a")
	m.IncrementBy("b", 5)

	snap := m.Snapshot()
	if snap["a"] != 1 {
		t.Errorf("a = %d", snap["a"])
	}
	if snap["b"] != 5 {
		t.Errorf("b = %d", snap["b"])
	}

	snap["a"] = 999
	if m.Counter("a") != 1 {
		t.Errorf("Counter a changed after snapshot mutation")
	}
}

func TestPercentile(t *testing.T) {
	if p := percentile(nil, 0.5); p != 0 {
		t.Errorf("nil percentile = %f", p)
	}

	vals := []float64{10, 20, 30, 40, 50}
	if p := percentile(vals, 0.0); p != 10 {
		t.Errorf("p0 = %f", p)
	}
	if p := percentile(vals, 1.0); p != 50 {
		t.Errorf("p100 = %f", p)
	}
	if p := percentile(vals, 0.5); p != 30 {
		t.Errorf("p50 = %f", p)
	}
}

func TestMetricTypes(t *testing.T) {
	types := []MetricType{
		MetricRuns, MetricQuality, MetricCost, MetricLatency,
		MetricFitness, MetricReflection, MetricErrors, MetricTokens,
	}
	seen := make(map[MetricType]bool)
	for _, mt := range types {
		if seen[mt] {
			t.Errorf("duplicate metric type: %s", mt)
		}
		seen[mt] = true
	}
}
