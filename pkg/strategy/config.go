package strategy

import "time"

// MovingAverageKind selects the smoothing method for the moving-average
// strategy.
type MovingAverageKind string

const (
	MASimple      MovingAverageKind = "simple"
	MAWeighted    MovingAverageKind = "weighted"
	MAExponential MovingAverageKind = "exponential"
)

// Config carries every knob a strategy can read. It is fully resolved
// before any strategy runs; strategies never consult globals or the
// environment.
type Config struct {
	// Target percentiles for the request baseline.
	CPUPercentile    float64
	MemoryPercentile float64

	// Limit = percentile + LimitStdDevFactor * stddev for the
	// dispersion-adjusted strategies.
	LimitStdDevFactor float64

	// MinSamples below which strategies fail with InsufficientDataError.
	MinSamples int

	// Business-hours window, hours in [0,24), days as Go weekdays.
	// Timestamps are interpreted as UTC.
	BusinessHoursStart int
	BusinessHoursEnd   int
	BusinessDays       []time.Weekday

	// Trend detection: normalized growth over the window above which the
	// trend-aware strategy projects forward, and the projection horizon.
	TrendThreshold float64
	TrendHorizon   time.Duration

	// Coefficient-of-variation bound separating volatile workloads.
	HighVarianceThreshold float64

	// Moving-average smoothing.
	MovingAverageKind MovingAverageKind
	MovingAverageSpan int

	// Quantile levels for the quantile-regression strategy, ascending.
	// The request blends the first two, the limit uses the last.
	QuantileLevels []float64

	// Seasonal decomposition cycle length and forecast horizon.
	SeasonalPeriod  time.Duration
	ForecastHorizon time.Duration

	// Optional fixed ensemble weights by strategy name. Empty means
	// confidence-based weighting. Weights are renormalized over the
	// strategies that actually succeed.
	EnsembleWeights map[string]float64

	// Fraction of confidence surrendered per failed ensemble member.
	EnsembleFailurePenalty float64
}

// DefaultConfig returns the fully resolved defaults. Callers overlay CLI
// and environment values on top before the run starts.
func DefaultConfig() Config {
	return Config{
		CPUPercentile:          95.0,
		MemoryPercentile:       99.0,
		LimitStdDevFactor:      1.5,
		MinSamples:             10,
		BusinessHoursStart:     9,
		BusinessHoursEnd:       17,
		BusinessDays:           []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		TrendThreshold:         0.1,
		TrendHorizon:           24 * time.Hour,
		HighVarianceThreshold:  0.5,
		MovingAverageKind:      MAExponential,
		MovingAverageSpan:      12,
		QuantileLevels:         []float64{50, 90, 99},
		SeasonalPeriod:         24 * time.Hour,
		ForecastHorizon:        time.Hour,
		EnsembleFailurePenalty: 0.5,
	}
}

// isBusinessTime reports whether t falls inside the configured business
// window.
func (c Config) isBusinessTime(t time.Time) bool {
	utc := t.UTC()
	hour := utc.Hour()
	if hour < c.BusinessHoursStart || hour >= c.BusinessHoursEnd {
		return false
	}
	day := utc.Weekday()
	for _, d := range c.BusinessDays {
		if d == day {
			return true
		}
	}
	return false
}
