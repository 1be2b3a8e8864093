package strategy

import (
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
)

// TrendAware fits a linear trend with ordinary least squares. When the
// normalized slope exceeds the trend threshold, the percentile estimate is
// projected to the end of the configured horizon. Volatile series get a
// wider buffer instead; otherwise this behaves like Basic.
type TrendAware struct{}

func (s *TrendAware) Name() string { return NameTrendAware }

const (
	trendIncreasing = "increasing"
	trendDecreasing = "decreasing"
	trendVolatile   = "volatile"
	trendStable     = "stable"
)

func (s *TrendAware) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	if len(ms.CPU) < cfg.MinSamples || len(ms.Memory) < cfg.MinSamples {
		return nil, insufficient(s.Name(), "need at least %d samples, got cpu=%d memory=%d",
			cfg.MinSamples, len(ms.CPU), len(ms.Memory))
	}

	cpuReq, cpuLim, cpuTrend, cpuFit := s.trendEstimate(ms.CPU, cfg.CPUPercentile, cfg)
	memReq, memLim, memTrend, memFit := s.trendEstimate(ms.Memory, cfg.MemoryPercentile, cfg)

	pattern := cpuTrend
	if memTrend == trendIncreasing && cpuTrend == trendStable {
		pattern = memTrend
	}

	cv := coefficientOfVariation(ms.CPU.Values())
	confidence := baseConfidence(len(ms.CPU), cv)
	if pattern == trendIncreasing || pattern == trendDecreasing {
		// Discount a projection by how well the line actually fits.
		fit := (cpuFit + memFit) / 2
		confidence *= 0.5 + 0.5*fit
	}

	return &Estimate{
		Strategy:      s.Name(),
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
		Confidence:    confidence,
		Pattern:       pattern,
	}, nil
}

func (s *TrendAware) trendEstimate(series metrics.TimeSeries, percentile float64, cfg Config) (request, limit float64, trend string, fit float64) {
	values := series.Values()
	request, limit = percentileEstimate(values, percentile, cfg.LimitStdDevFactor)

	start := series[0].Timestamp
	x := make([]float64, len(series))
	for i, sample := range series {
		x[i] = sample.Timestamp.Sub(start).Hours()
	}

	slope, _, r2 := linearRegression(x, values)
	mean := meanOf(values)
	spanHours := series.Span().Hours()

	// Growth across the whole window relative to the mean level.
	growth := 0.0
	if mean != 0 {
		growth = slope * spanHours / mean
	}
	volatility := coefficientOfVariation(values)

	switch {
	case volatility > cfg.HighVarianceThreshold:
		trend = trendVolatile
	case growth > cfg.TrendThreshold:
		trend = trendIncreasing
	case growth < -cfg.TrendThreshold:
		trend = trendDecreasing
	default:
		trend = trendStable
	}

	switch trend {
	case trendIncreasing:
		// Shift the estimate to where the fitted line lands at the end
		// of the projection horizon.
		projection := slope * cfg.TrendHorizon.Hours()
		if projection > 0 {
			request += projection
			limit += projection
		}
	case trendVolatile:
		request *= 1.2
		limit *= 1.2
	}
	// Decreasing trends keep the unprojected estimate: shrinking below
	// observed usage is the safety layer's call, not the trend fit's.

	return request, limit, trend, r2
}
