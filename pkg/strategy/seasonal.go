package strategy

import (
	"math"

	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
)

// SeasonalForecast decomposes the series into trend + seasonal + residual
// with a classical additive decomposition, extrapolates the trend, and
// derives the request/limit from the upper band of the forecast over the
// horizon. Needs at least two full seasonal cycles of history.
type SeasonalForecast struct{}

func (s *SeasonalForecast) Name() string { return NameSeasonalForecast }

// One-sided normal critical values for the 95% and 99.5% forecast bands.
const (
	forecastZRequest = 1.645
	forecastZLimit   = 2.576
)

func (s *SeasonalForecast) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	cpuReq, cpuLim, cpuFit, err := s.forecast(ms.CPU, cfg)
	if err != nil {
		return nil, err
	}
	memReq, memLim, memFit, err := s.forecast(ms.Memory, cfg)
	if err != nil {
		return nil, err
	}

	cv := coefficientOfVariation(ms.CPU.Values())
	confidence := baseConfidence(len(ms.CPU), cv) * (0.5 + 0.5*(cpuFit+memFit)/2)

	return &Estimate{
		Strategy:      s.Name(),
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
		Confidence:    confidence,
		Pattern:       "seasonal",
	}, nil
}

// forecast runs the decomposition for one series. The fit score is the R²
// of the linear trend over the trend component, used to discount
// confidence when the trend is erratic.
func (s *SeasonalForecast) forecast(series metrics.TimeSeries, cfg Config) (request, limit, fit float64, err error) {
	resolution := series.Resolution()
	if resolution <= 0 {
		return 0, 0, 0, insufficient(s.Name(), "cannot establish sampling resolution from %d samples", len(series))
	}

	period := int(cfg.SeasonalPeriod / resolution)
	if period < 2 {
		return 0, 0, 0, insufficient(s.Name(), "seasonal period %s shorter than 2 samples at resolution %s",
			cfg.SeasonalPeriod, resolution)
	}
	if len(series) < 2*period {
		return 0, 0, 0, insufficient(s.Name(), "need %d samples (2 cycles of %d), got %d",
			2*period, period, len(series))
	}

	values := series.Values()
	trend := centeredMovingAverage(values, period)

	// Seasonal component: phase-averaged detrended values, centered so the
	// component sums to zero over one cycle.
	seasonal := make([]float64, period)
	counts := make([]int, period)
	for i, t := range trend {
		if math.IsNaN(t) {
			continue
		}
		phase := i % period
		seasonal[phase] += values[i] - t
		counts[phase]++
	}
	seasonalMean := 0.0
	for phase := range seasonal {
		if counts[phase] > 0 {
			seasonal[phase] /= float64(counts[phase])
		}
		seasonalMean += seasonal[phase]
	}
	seasonalMean /= float64(period)
	for phase := range seasonal {
		seasonal[phase] -= seasonalMean
	}

	// Residual dispersion over the region where the trend is defined.
	var residuals []float64
	var trendX, trendY []float64
	for i, t := range trend {
		if math.IsNaN(t) {
			continue
		}
		residuals = append(residuals, values[i]-t-seasonal[i%period])
		trendX = append(trendX, float64(i))
		trendY = append(trendY, t)
	}
	residualStd := stdDevOf(residuals)

	slope, intercept, r2 := linearRegression(trendX, trendY)

	steps := int(cfg.ForecastHorizon / resolution)
	if steps < 1 {
		steps = 1
	}

	// Upper forecast band across the horizon; the request sizes for the
	// 95% band, the limit for the 99.5% band.
	peak := math.Inf(-1)
	n := len(values)
	for j := 1; j <= steps; j++ {
		idx := n - 1 + j
		point := slope*float64(idx) + intercept + seasonal[idx%period]
		if point > peak {
			peak = point
		}
	}
	if peak < 0 {
		peak = 0
	}

	request = peak + forecastZRequest*residualStd
	limit = peak + forecastZLimit*residualStd
	return request, limit, r2, nil
}

// centeredMovingAverage computes the classical decomposition trend: a
// centered window of one full period, with the usual half-weight endpoints
// for even periods. Positions without a full window are NaN.
func centeredMovingAverage(values []float64, period int) []float64 {
	trend := make([]float64, len(values))
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	even := period%2 == 0

	for i := half; i < len(values)-half; i++ {
		sum := 0.0
		if even {
			sum += values[i-half] / 2
			sum += values[i+half] / 2
			for j := i - half + 1; j <= i+half-1; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		}
	}
	return trend
}
