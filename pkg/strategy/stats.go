package strategy

import (
	"math"
	"sort"
)

// percentileOf computes the pth percentile (0-100) using linear
// interpolation between the two nearest ranks.
func percentileOf(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	rank := (p / 100.0) * (n - 1)

	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*fraction
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDevOf(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(values)))
}

// coefficientOfVariation measures relative variability: high (>0.5) means
// spiky, low (<0.2) means steady.
func coefficientOfVariation(values []float64) float64 {
	mean := meanOf(values)
	if mean == 0 {
		return 0
	}
	return stdDevOf(values) / mean
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func medianOf(values []float64) float64 {
	return percentileOf(values, 50)
}

// linearRegression fits y = slope*x + intercept by ordinary least squares
// and returns the coefficient of determination as the fit quality.
func linearRegression(x, y []float64) (slope, intercept, r2 float64) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0, 0
	}

	meanX := meanOf(x)
	meanY := meanOf(y)

	numerator := 0.0
	denominator := 0.0
	for i := 0; i < len(x); i++ {
		numerator += (x[i] - meanX) * (y[i] - meanY)
		denominator += (x[i] - meanX) * (x[i] - meanX)
	}

	if denominator == 0 {
		return 0, meanY, 0
	}
	slope = numerator / denominator
	intercept = meanY - slope*meanX

	ssTotal := 0.0
	ssRes := 0.0
	for i := 0; i < len(x); i++ {
		predicted := slope*x[i] + intercept
		ssRes += (y[i] - predicted) * (y[i] - predicted)
		ssTotal += (y[i] - meanY) * (y[i] - meanY)
	}

	if ssTotal == 0 {
		r2 = 0
	} else {
		r2 = 1.0 - (ssRes / ssTotal)
	}
	if r2 < 0 {
		r2 = 0
	} else if r2 > 1 {
		r2 = 1
	}

	return slope, intercept, r2
}

// baseConfidence scores an estimate from sample volume and dispersion.
// Ideal volume is ~7 days at 5-minute resolution.
func baseConfidence(sampleCount int, cv float64) float64 {
	idealSamples := 2000.0
	sampleScore := float64(sampleCount) / idealSamples
	if sampleScore > 1.0 {
		sampleScore = 1.0
	}

	dispersionScore := 1.0 - cv
	if dispersionScore < 0 {
		dispersionScore = 0
	}

	return 0.6*sampleScore + 0.4*dispersionScore
}
