package strategy

import (
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
)

// TimeAware partitions the series into business-hours and off-hours
// subsets, estimates each independently, and sizes for the peak regime.
type TimeAware struct{}

func (s *TimeAware) Name() string { return NameTimeAware }

const (
	regimeBusiness = "business-hours"
	regimeOffHours = "off-hours"
	regimeBlended  = "blended"
)

func (s *TimeAware) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	if len(ms.CPU) < cfg.MinSamples || len(ms.Memory) < cfg.MinSamples {
		return nil, insufficient(s.Name(), "need at least %d samples, got cpu=%d memory=%d",
			cfg.MinSamples, len(ms.CPU), len(ms.Memory))
	}

	cpuReq, cpuLim, cpuRegime := s.regimeEstimate(ms.CPU, cfg.CPUPercentile, cfg)
	memReq, memLim, _ := s.regimeEstimate(ms.Memory, cfg.MemoryPercentile, cfg)

	cv := coefficientOfVariation(ms.CPU.Values())
	return &Estimate{
		Strategy:      s.Name(),
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
		Confidence:    baseConfidence(len(ms.CPU), cv),
		Pattern:       cpuRegime,
	}, nil
}

// regimeEstimate computes per-regime percentile estimates and returns the
// larger one. A regime with too few samples falls back to the blended
// series so a weekend-only window still yields an answer.
func (s *TimeAware) regimeEstimate(series metrics.TimeSeries, percentile float64, cfg Config) (request, limit float64, regime string) {
	var business, offHours []float64
	for _, sample := range series {
		if cfg.isBusinessTime(sample.Timestamp) {
			business = append(business, sample.Value)
		} else {
			offHours = append(offHours, sample.Value)
		}
	}

	if len(business) < cfg.MinSamples || len(offHours) < cfg.MinSamples {
		req, lim := percentileEstimate(series.Values(), percentile, cfg.LimitStdDevFactor)
		return req, lim, regimeBlended
	}

	bizReq, bizLim := percentileEstimate(business, percentile, cfg.LimitStdDevFactor)
	offReq, offLim := percentileEstimate(offHours, percentile, cfg.LimitStdDevFactor)

	// Workloads must be sized for the peak regime, not the blend.
	if bizReq >= offReq {
		return bizReq, bizLim, regimeBusiness
	}
	return offReq, offLim, regimeOffHours
}
