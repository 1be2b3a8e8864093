package metrics

import (
	"time"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// Kind selects which resource a time series describes.
type Kind string

const (
	KindCPU    Kind = "cpu"    // cores
	KindMemory Kind = "memory" // bytes
)

// Sample is a single metric data point.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// TimeSeries is an ordered sequence of samples with strictly increasing
// timestamps. Gaps are allowed; values are non-negative.
type TimeSeries []Sample

// Values returns just the sample values, preserving order.
func (ts TimeSeries) Values() []float64 {
	vals := make([]float64, len(ts))
	for i, s := range ts {
		vals[i] = s.Value
	}
	return vals
}

// Span returns the time covered between the first and last sample.
func (ts TimeSeries) Span() time.Duration {
	if len(ts) < 2 {
		return 0
	}
	return ts[len(ts)-1].Timestamp.Sub(ts[0].Timestamp)
}

// Resolution estimates the typical sampling interval from the median gap
// between adjacent samples. Returns 0 for series shorter than 2 samples.
func (ts TimeSeries) Resolution() time.Duration {
	if len(ts) < 2 {
		return 0
	}
	gaps := make([]time.Duration, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		gaps = append(gaps, ts[i].Timestamp.Sub(ts[i-1].Timestamp))
	}
	// Median keeps one long outage gap from skewing the estimate.
	for i := 1; i < len(gaps); i++ {
		for j := i; j > 0 && gaps[j] < gaps[j-1]; j-- {
			gaps[j], gaps[j-1] = gaps[j-1], gaps[j]
		}
	}
	return gaps[len(gaps)/2]
}

// ResourceMetricSet owns the CPU and memory series for one container over
// the analysis window. It is built once per run and read-only afterwards.
type ResourceMetricSet struct {
	Container models.ContainerID
	CPU       TimeSeries
	Memory    TimeSeries
}
