package strategy

import (
	"sync"

	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// Ensemble runs every other strategy against the same metric set and
// combines the successful results with confidence-weighted averaging.
// Strategies that fail are excluded from the weighted sum; they discount
// the combined confidence instead of counting as zero-value votes.
type Ensemble struct {
	members []Strategy
}

// NewEnsemble builds the ensemble over all non-ensemble strategies. Members
// are constructed directly rather than through New so the package-level
// registry does not depend on itself.
func NewEnsemble() *Ensemble {
	return &Ensemble{members: []Strategy{
		&Basic{},
		&TimeAware{},
		&TrendAware{},
		&WorkloadAware{},
		&QuantileRegression{},
		&MovingAverage{},
		&SeasonalForecast{},
	}}
}

func (s *Ensemble) Name() string { return NameEnsemble }

func (s *Ensemble) Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error) {
	results := make([]*Estimate, len(s.members))

	// Members are independent; evaluate them concurrently.
	var wg sync.WaitGroup
	for i, member := range s.members {
		wg.Add(1)
		go func(i int, member Strategy) {
			defer wg.Done()
			est, err := member.Evaluate(ms, cfg)
			if err == nil {
				results[i] = est
			}
		}(i, member)
	}
	wg.Wait()

	var successes []*Estimate
	for _, est := range results {
		if est != nil {
			successes = append(successes, est)
		}
	}
	if len(successes) == 0 {
		return nil, insufficient(s.Name(), "all %d member strategies failed", len(s.members))
	}

	weights := s.resolveWeights(successes, cfg)

	combined := &Estimate{Strategy: s.Name()}
	weightedConfidence := 0.0
	for i, est := range successes {
		w := weights[i]
		combined.CPURequest += w * est.CPURequest
		combined.CPULimit += w * est.CPULimit
		combined.MemoryRequest += w * est.MemoryRequest
		combined.MemoryLimit += w * est.MemoryLimit
		weightedConfidence += w * est.Confidence
		combined.Contributors = append(combined.Contributors, models.Contribution{
			Strategy:   est.Strategy,
			Weight:     w,
			Confidence: est.Confidence,
		})
	}

	// Failed members signal poor data quality; be conservative about the
	// combined confidence in proportion to how many dropped out.
	failedFraction := float64(len(s.members)-len(successes)) / float64(len(s.members))
	combined.Confidence = weightedConfidence * (1 - cfg.EnsembleFailurePenalty*failedFraction)

	return combined, nil
}

// resolveWeights normalizes weights over the successful members. Explicit
// configured weights win; otherwise weights follow member confidence, and
// equal confidences degrade to equal weights.
func (s *Ensemble) resolveWeights(successes []*Estimate, cfg Config) []float64 {
	weights := make([]float64, len(successes))
	total := 0.0

	for i, est := range successes {
		if len(cfg.EnsembleWeights) > 0 {
			weights[i] = cfg.EnsembleWeights[est.Strategy]
		} else {
			weights[i] = est.Confidence
		}
		total += weights[i]
	}

	if total == 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return weights
	}

	for i := range weights {
		weights[i] /= total
	}
	return weights
}
