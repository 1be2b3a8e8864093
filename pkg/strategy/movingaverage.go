package strategy

import (
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
)

// MovingAverage smooths the most recent sub-window with a simple,
// weighted, or exponential moving average. The request is the latest
// smoothed value; the limit adds a prediction interval from the recent
// dispersion.
type MovingAverage struct{}

func (s *MovingAverage) Name() string { return NameMovingAverage }

// Two-sided 95% normal critical value for the prediction interval.
const predictionZ = 1.96

func (s *MovingAverage) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	need := cfg.MinSamples
	if cfg.MovingAverageSpan > need {
		need = cfg.MovingAverageSpan
	}
	if len(ms.CPU) < need || len(ms.Memory) < need {
		return nil, insufficient(s.Name(), "need at least %d samples for span %d, got cpu=%d memory=%d",
			need, cfg.MovingAverageSpan, len(ms.CPU), len(ms.Memory))
	}

	cpuReq, cpuLim := smoothedEstimate(ms.CPU.Values(), cfg)
	memReq, memLim := smoothedEstimate(ms.Memory.Values(), cfg)

	cv := coefficientOfVariation(ms.CPU.Values())
	confidence := baseConfidence(len(ms.CPU), cv)
	// Smoothing tracks the present, not the tails; it deserves a little
	// less trust than the distributional strategies on spiky series.
	if cv > cfg.HighVarianceThreshold {
		confidence *= 0.8
	}

	return &Estimate{
		Strategy:      s.Name(),
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
		Confidence:    confidence,
		Pattern:       string(cfg.MovingAverageKind),
	}, nil
}

func smoothedEstimate(values []float64, cfg Config) (request, limit float64) {
	span := cfg.MovingAverageSpan
	recent := values[len(values)-span:]

	switch cfg.MovingAverageKind {
	case MASimple:
		request = meanOf(recent)
	case MAWeighted:
		request = weightedAverage(recent)
	default:
		request = ewma(values, span)
	}

	limit = request + predictionZ*stdDevOf(recent)
	return request, limit
}

// weightedAverage weights samples linearly, newest heaviest.
func weightedAverage(values []float64) float64 {
	totalWeight := 0.0
	sum := 0.0
	for i, v := range values {
		w := float64(i + 1)
		sum += v * w
		totalWeight += w
	}
	return sum / totalWeight
}

// ewma runs an exponential moving average over the whole series with
// alpha = 2/(span+1), the standard span parameterization.
func ewma(values []float64, span int) float64 {
	alpha := 2.0 / (float64(span) + 1.0)
	smoothed := values[0]
	for _, v := range values[1:] {
		smoothed = alpha*v + (1-alpha)*smoothed
	}
	return smoothed
}
