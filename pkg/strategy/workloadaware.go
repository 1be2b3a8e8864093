package strategy

import (
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
)

// WorkloadAware classifies the series as steady, bursty, or idle-heavy from
// the peak-to-median ratio and the fraction of near-zero samples, then
// applies a classification-specific estimate.
type WorkloadAware struct{}

func (s *WorkloadAware) Name() string { return NameWorkloadAware }

const (
	classSteady    = "steady"
	classBursty    = "bursty"
	classIdleHeavy = "idle-heavy"
)

// Classification knobs. Peak more than 3x the median marks a bursty
// series; more than half the samples near zero marks an idle-heavy one.
const (
	burstyPeakToMedian = 3.0
	idleFraction       = 0.5
	nearZeroOfMedian   = 0.05
)

func (s *WorkloadAware) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	if len(ms.CPU) < cfg.MinSamples || len(ms.Memory) < cfg.MinSamples {
		return nil, insufficient(s.Name(), "need at least %d samples, got cpu=%d memory=%d",
			cfg.MinSamples, len(ms.CPU), len(ms.Memory))
	}

	cpu := ms.CPU.Values()
	mem := ms.Memory.Values()

	class := classify(cpu, cfg)
	cpuReq, cpuLim := s.classEstimate(cpu, class, cfg.CPUPercentile, cfg)
	memReq, memLim := s.classEstimate(mem, classify(mem, cfg), cfg.MemoryPercentile, cfg)

	confidence := baseConfidence(len(cpu), coefficientOfVariation(cpu))
	if class == classBursty {
		// Bursty history predicts the future less well.
		confidence *= 0.85
	}

	return &Estimate{
		Strategy:      s.Name(),
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
		Confidence:    confidence,
		Pattern:       class,
	}, nil
}

func classify(values []float64, cfg Config) string {
	median := medianOf(values)
	peak := maxOf(values)

	nearZero := 0
	threshold := median * nearZeroOfMedian
	for _, v := range values {
		if v <= threshold {
			nearZero++
		}
	}
	if float64(nearZero)/float64(len(values)) > idleFraction {
		return classIdleHeavy
	}

	if median > 0 && peak/median > burstyPeakToMedian {
		return classBursty
	}
	if coefficientOfVariation(values) > cfg.HighVarianceThreshold {
		return classBursty
	}
	return classSteady
}

func (s *WorkloadAware) classEstimate(values []float64, class string, percentile float64, cfg Config) (request, limit float64) {
	switch class {
	case classBursty:
		// Size for the spikes: a high percentile request and a limit
		// that covers the observed peak with headroom.
		request = percentileOf(values, 99)
		limit = maxOf(values) * 1.1
		if limit < request {
			limit = request
		}
	case classIdleHeavy:
		// Mostly idle: bias toward the floor with a lower percentile.
		lowered := percentile - 5
		if lowered < 50 {
			lowered = 50
		}
		request, limit = percentileEstimate(values, lowered, cfg.LimitStdDevFactor)
	default:
		request, limit = percentileEstimate(values, percentile, cfg.LimitStdDevFactor)
	}
	return request, limit
}
