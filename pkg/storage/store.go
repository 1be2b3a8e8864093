package storage

import (
	"context"
	"time"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// Run groups the recommendations produced by a single invocation.
type Run struct {
	ID        string    `json:"id"`
	Strategy  string    `json:"strategy"`
	Window    string    `json:"window"`
	Targets   int       `json:"targets"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for persistent recommendation history.
type Store interface {
	SaveRun(ctx context.Context, run *Run, recs []*models.Recommendation) error
	GetRun(ctx context.Context, id string) (*Run, []*models.Recommendation, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListContainerHistory(ctx context.Context, id models.ContainerID, limit int) ([]*models.Recommendation, error)

	Ping(ctx context.Context) error
	Close() error
}
