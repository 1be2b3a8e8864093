package strategy

import (
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
)

// QuantileRegression derives the request from the lower configured
// quantiles and the limit from the highest one. Using several quantiles is
// more robust to outliers than a single percentile plus stddev.
type QuantileRegression struct{}

func (s *QuantileRegression) Name() string { return NameQuantileRegression }

func (s *QuantileRegression) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	if len(ms.CPU) < cfg.MinSamples || len(ms.Memory) < cfg.MinSamples {
		return nil, insufficient(s.Name(), "need at least %d samples, got cpu=%d memory=%d",
			cfg.MinSamples, len(ms.CPU), len(ms.Memory))
	}
	if len(cfg.QuantileLevels) < 2 {
		return nil, insufficient(s.Name(), "need at least 2 quantile levels, got %d", len(cfg.QuantileLevels))
	}

	cpuReq, cpuLim := quantileEstimate(ms.CPU.Values(), cfg.QuantileLevels)
	memReq, memLim := quantileEstimate(ms.Memory.Values(), cfg.QuantileLevels)

	cv := coefficientOfVariation(ms.CPU.Values())
	return &Estimate{
		Strategy:      s.Name(),
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
		Confidence:    baseConfidence(len(ms.CPU), cv),
	}, nil
}

// quantileEstimate blends the lower quantiles into the request (weighted
// toward the middle level) and takes the limit from the top level.
// Quantiles are monotonic, so request <= limit holds by construction.
func quantileEstimate(values []float64, levels []float64) (request, limit float64) {
	low := percentileOf(values, levels[0])
	mid := percentileOf(values, levels[len(levels)/2])
	high := percentileOf(values, levels[len(levels)-1])

	request = 0.2*low + 0.8*mid
	limit = high
	return request, limit
}
