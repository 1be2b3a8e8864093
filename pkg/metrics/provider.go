package metrics

import (
	"context"
	"time"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// Provider is the metrics collaborator contract. Absence of data yields an
// empty series, not an error, so strategies can decide on sufficiency
// uniformly.
type Provider interface {
	// Fetch returns the usage series for one container and resource kind
	// over the lookback window, sampled at the given step.
	Fetch(ctx context.Context, id models.ContainerID, kind Kind, lookback time.Duration, step time.Duration) (TimeSeries, error)

	// IsAvailable reports whether the backend is reachable.
	IsAvailable(ctx context.Context) bool

	Name() string
}

// FetchSet gathers both resource series for a container into a
// ResourceMetricSet.
func FetchSet(ctx context.Context, p Provider, id models.ContainerID, lookback, step time.Duration) (*ResourceMetricSet, error) {
	cpu, err := p.Fetch(ctx, id, KindCPU, lookback, step)
	if err != nil {
		return nil, err
	}
	mem, err := p.Fetch(ctx, id, KindMemory, lookback, step)
	if err != nil {
		return nil, err
	}
	return &ResourceMetricSet{Container: id, CPU: cpu, Memory: mem}, nil
}
