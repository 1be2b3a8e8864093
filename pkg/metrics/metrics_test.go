package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/common/model"
)

func sampleAt(base time.Time, offset time.Duration, value float64) Sample {
	return Sample{Timestamp: base.Add(offset), Value: value}
}

func TestTimeSeriesValues(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := TimeSeries{
		sampleAt(base, 0, 0.1),
		sampleAt(base, time.Minute, 0.2),
		sampleAt(base, 2*time.Minute, 0.3),
	}

	vals := ts.Values()
	if len(vals) != 3 || vals[0] != 0.1 || vals[2] != 0.3 {
		t.Errorf("Expected ordered values, got %v", vals)
	}
}

func TestTimeSeriesSpan(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := TimeSeries{
		sampleAt(base, 0, 1),
		sampleAt(base, 30*time.Minute, 1),
		sampleAt(base, time.Hour, 1),
	}
	if ts.Span() != time.Hour {
		t.Errorf("Expected 1h span, got %s", ts.Span())
	}

	if (TimeSeries{}).Span() != 0 {
		t.Error("Expected zero span for empty series")
	}
}

func TestResolutionMedianIgnoresOutage(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Regular 5m sampling with one 6h hole in the middle.
	ts := TimeSeries{
		sampleAt(base, 0, 1),
		sampleAt(base, 5*time.Minute, 1),
		sampleAt(base, 10*time.Minute, 1),
		sampleAt(base, 6*time.Hour, 1),
		sampleAt(base, 6*time.Hour+5*time.Minute, 1),
		sampleAt(base, 6*time.Hour+10*time.Minute, 1),
	}

	if got := ts.Resolution(); got != 5*time.Minute {
		t.Errorf("Expected 5m resolution despite the gap, got %s", got)
	}
}

func TestResolutionTooShort(t *testing.T) {
	if (TimeSeries{{Value: 1}}).Resolution() != 0 {
		t.Error("Expected zero resolution for a single sample")
	}
}

func TestParseMatrixFlattensAndSorts(t *testing.T) {
	base := model.TimeFromUnix(1700000000)
	matrix := model.Matrix{
		&model.SampleStream{
			Values: []model.SamplePair{
				{Timestamp: base.Add(10 * time.Minute), Value: 0.3},
				{Timestamp: base, Value: 0.1},
				{Timestamp: base.Add(5 * time.Minute), Value: 0.2},
			},
		},
	}

	series, err := parseMatrix(matrix)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i].Timestamp.Before(series[i-1].Timestamp) {
			t.Error("Expected timestamps in ascending order")
		}
	}
	if series[0].Value != 0.1 || series[2].Value != 0.3 {
		t.Errorf("Expected values sorted with their timestamps, got %v", series.Values())
	}
}

func TestParseMatrixEmpty(t *testing.T) {
	series, err := parseMatrix(model.Matrix{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(series) != 0 {
		t.Errorf("Expected empty series, got %d samples", len(series))
	}
}

func TestParseMatrixWrongType(t *testing.T) {
	if _, err := parseMatrix(model.Vector{}); err == nil {
		t.Error("Expected error for non-matrix result")
	}
}
