package strategy

import (
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
)

// Basic computes the target percentile as the request and a
// dispersion-adjusted limit (percentile + k*stddev). No time, trend, or
// workload analysis.
type Basic struct{}

func (s *Basic) Name() string { return NameBasic }

func (s *Basic) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	if len(ms.CPU) < cfg.MinSamples || len(ms.Memory) < cfg.MinSamples {
		return nil, insufficient(s.Name(), "need at least %d samples, got cpu=%d memory=%d",
			cfg.MinSamples, len(ms.CPU), len(ms.Memory))
	}

	cpu := ms.CPU.Values()
	mem := ms.Memory.Values()

	cpuReq, cpuLim := percentileEstimate(cpu, cfg.CPUPercentile, cfg.LimitStdDevFactor)
	memReq, memLim := percentileEstimate(mem, cfg.MemoryPercentile, cfg.LimitStdDevFactor)

	cv := coefficientOfVariation(cpu)
	return &Estimate{
		Strategy:      s.Name(),
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
		Confidence:    baseConfidence(len(cpu), cv),
	}, nil
}

// percentileEstimate is the shared request/limit derivation: request at the
// target percentile, limit pushed up by k standard deviations.
func percentileEstimate(values []float64, percentile, stdDevFactor float64) (request, limit float64) {
	request = percentileOf(values, percentile)
	limit = request + stdDevFactor*stdDevOf(values)
	return request, limit
}
