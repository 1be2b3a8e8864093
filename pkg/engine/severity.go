package engine

import (
	"math"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// SeverityThresholds are the fractional-change boundaries between buckets,
// symmetric for increases and decreases. Configurable rather than
// hardcoded so operators can align them with their own review policy.
type SeverityThresholds struct {
	Minor    float64
	Moderate float64
	Critical float64
}

// DefaultSeverityThresholds buckets changes at 5%, 25% and 75%.
func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{Minor: 0.05, Moderate: 0.25, Critical: 0.75}
}

// classify maps a single old/new value pair to a bucket. A value the
// manifest never declared cannot be compared; adding one is a moderate
// change by convention.
func (t SeverityThresholds) classify(current, recommended float64) models.Severity {
	if current == 0 {
		if recommended == 0 {
			return models.SeverityNone
		}
		return models.SeverityModerate
	}

	delta := math.Abs(recommended-current) / current
	switch {
	case delta > t.Critical:
		return models.SeverityCritical
	case delta > t.Moderate:
		return models.SeverityModerate
	case delta > t.Minor:
		return models.SeverityMinor
	default:
		return models.SeverityNone
	}
}

// Classify scores the whole recommendation: per-resource severities are
// the worse of the request and limit buckets, and the container severity
// is the worst overall.
func (t SeverityThresholds) Classify(current, recommended models.ResourceValues) (overall, cpu, memory models.Severity) {
	cpu = maxSeverity(
		t.classify(current.CPURequest, recommended.CPURequest),
		t.classify(current.CPULimit, recommended.CPULimit),
	)
	memory = maxSeverity(
		t.classify(current.MemoryRequest, recommended.MemoryRequest),
		t.classify(current.MemoryLimit, recommended.MemoryLimit),
	)
	return maxSeverity(cpu, memory), cpu, memory
}

var severityRank = map[models.Severity]int{
	models.SeverityNone:     0,
	models.SeverityMinor:    1,
	models.SeverityModerate: 2,
	models.SeverityCritical: 3,
}

func maxSeverity(a, b models.Severity) models.Severity {
	if severityRank[a] >= severityRank[b] {
		return a
	}
	return b
}
