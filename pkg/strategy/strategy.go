// Package strategy implements the recommendation strategies that convert a
// container's historical usage into raw request/limit estimates.
package strategy

import (
	"fmt"
	"sort"

	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// Estimate is a strategy's raw output before safety buffering and clamping.
// CPU values are in cores, memory in bytes.
type Estimate struct {
	Strategy string

	CPURequest    float64
	CPULimit      float64
	MemoryRequest float64
	MemoryLimit   float64

	// Confidence in [0,1], driven by sample volume and dispersion.
	Confidence float64

	// Pattern describes what the strategy detected, e.g. the dominant
	// regime for time-aware or the workload class for workload-aware.
	Pattern string

	// Populated by the ensemble with per-strategy weights.
	Contributors []models.Contribution
}

// Strategy converts a container's metric set into an estimate.
type Strategy interface {
	Name() string
	Evaluate(ms *metrics.ResourceMetricSet, cfg Config) (*Estimate, error)
}

// Strategy names accepted on the CLI.
const (
	NameBasic              = "basic"
	NameTimeAware          = "time_aware"
	NameTrendAware         = "trend_aware"
	NameWorkloadAware      = "workload_aware"
	NameQuantileRegression = "quantile_regression"
	NameMovingAverage      = "moving_average"
	NameSeasonalForecast   = "seasonal_forecast"
	NameEnsemble           = "ensemble"
)

// registry maps strategy name to constructor. Resolved once at startup;
// there is no runtime reflection or dynamic lookup.
var registry = map[string]func() Strategy{
	NameBasic:              func() Strategy { return &Basic{} },
	NameTimeAware:          func() Strategy { return &TimeAware{} },
	NameTrendAware:         func() Strategy { return &TrendAware{} },
	NameWorkloadAware:      func() Strategy { return &WorkloadAware{} },
	NameQuantileRegression: func() Strategy { return &QuantileRegression{} },
	NameMovingAverage:      func() Strategy { return &MovingAverage{} },
	NameSeasonalForecast:   func() Strategy { return &SeasonalForecast{} },
	NameEnsemble:           func() Strategy { return NewEnsemble() },
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %v)", name, Names())
	}
	return ctor(), nil
}

// Names lists all registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
