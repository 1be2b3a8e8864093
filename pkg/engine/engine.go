// Package engine orchestrates strategy evaluation: it fetches metrics per
// container, runs the selected strategy, applies safety constraints, and
// classifies the severity of the resulting change.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
	"github.com/opscart/k8s-resource-resizer/pkg/models"
	"github.com/opscart/k8s-resource-resizer/pkg/strategy"
)

// Target is one container to evaluate: where its manifest lives and what
// the manifest currently declares.
type Target struct {
	Path      string
	Container models.ContainerID
	Current   models.ResourceValues
}

// Result pairs a target with its outcome. Exactly one of Recommendation
// and Err is set; failed containers never disappear silently.
type Result struct {
	Target         Target
	Recommendation *models.Recommendation
	Err            error
}

// Options configure a run. Zero values fall back to sane defaults in New.
type Options struct {
	Strategy    string
	Lookback    time.Duration
	Step        time.Duration
	Parallelism int
	Timeout     time.Duration
	Verbose     bool
}

// Engine evaluates a set of containers. Per-container work shares no
// mutable state, so containers run in parallel workers.
type Engine struct {
	provider    metrics.Provider
	strat       strategy.Strategy
	cfg         strategy.Config
	constraints SafetyConstraints
	severity    SeverityThresholds
	opts        Options
}

// New resolves the strategy once and validates the constraints up front:
// configuration errors abort before any analysis.
func New(provider metrics.Provider, cfg strategy.Config, constraints SafetyConstraints, severity SeverityThresholds, opts Options) (*Engine, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	strat, err := strategy.New(opts.Strategy)
	if err != nil {
		return nil, err
	}

	if opts.Lookback <= 0 {
		opts.Lookback = 24 * time.Hour
	}
	if opts.Step <= 0 {
		opts.Step = 5 * time.Minute
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}

	return &Engine{
		provider:    provider,
		strat:       strat,
		cfg:         cfg,
		constraints: constraints,
		severity:    severity,
		opts:        opts,
	}, nil
}

// Run evaluates all targets. Per-container errors land in the matching
// Result; only context cancellation of the whole group surfaces as an
// error. Containers finished before a timeout keep their results.
func (e *Engine) Run(ctx context.Context, targets []Target) ([]Result, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	results := make([]Result, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Target: target, Err: fmt.Errorf("evaluation aborted: %w", err)}
				return nil
			}
			rec, err := e.evaluate(gctx, target)
			results[i] = Result{Target: target, Recommendation: rec, Err: err}
			return nil
		})
	}

	// Workers store their errors in the matching Result and return nil,
	// so Wait itself cannot fail. A timeout or caller cancellation is
	// surfaced alongside the partial results instead.
	g.Wait()
	return results, ctx.Err()
}

// evaluate runs the full pipeline for one container.
func (e *Engine) evaluate(ctx context.Context, target Target) (*models.Recommendation, error) {
	if e.opts.Verbose {
		fmt.Printf("[DEBUG] Evaluating %s with %s\n", target.Container, e.strat.Name())
	}

	ms, err := metrics.FetchSet(ctx, e.provider, target.Container, e.opts.Lookback, e.opts.Step)
	if err != nil {
		return nil, fmt.Errorf("fetching metrics for %s: %w", target.Container, err)
	}

	estimate, err := e.strat.Evaluate(ms, e.cfg)
	if err != nil {
		return nil, err
	}

	return e.Finalize(target, estimate), nil
}

// Finalize turns a raw estimate into a recommendation: buffer, clamp,
// derive missing limits, classify severity. Deterministic apart from the
// generated ID and timestamp, so identical inputs yield identical values.
func (e *Engine) Finalize(target Target, estimate *strategy.Estimate) *models.Recommendation {
	cpuLimit := limitFloorCPU(estimate.CPURequest, estimate.CPULimit)
	memLimit := limitFloorMemory(estimate.MemoryRequest, estimate.MemoryLimit)

	c := e.constraints
	cpuReq, cpuLim, cpuClamped := applyPair(estimate.CPURequest, cpuLimit, c.CPUBuffer, c.CPUFloor, c.CPUCeiling)
	memReq, memLim, memClamped := applyPair(estimate.MemoryRequest, memLimit, c.MemoryBuffer, c.MemoryFloor, c.MemoryCeiling)

	recommended := models.ResourceValues{
		CPURequest:    cpuReq,
		CPULimit:      cpuLim,
		MemoryRequest: memReq,
		MemoryLimit:   memLim,
	}

	overall, cpuSev, memSev := e.severity.Classify(target.Current, recommended)

	return &models.Recommendation{
		ID:             uuid.NewString(),
		Container:      target.Container,
		Strategy:       estimate.Strategy,
		Current:        target.Current,
		Recommended:    recommended,
		Confidence:     estimate.Confidence,
		Severity:       overall,
		CPUSeverity:    cpuSev,
		MemorySeverity: memSev,
		CPUClamped:     cpuClamped,
		MemoryClamped:  memClamped,
		Contributors:   estimate.Contributors,
		CreatedAt:      time.Now().UTC(),
	}
}

// limitFloorCPU derives a limit when the strategy produced none, using
// request-tiered burst multiples: small containers burst 3x, medium 2.5x,
// large 2x. A dispersion-based limit from the strategy is kept as-is.
func limitFloorCPU(request, limit float64) float64 {
	if limit > 0 {
		return limit
	}
	switch {
	case request < 0.1:
		return request * 3.0
	case request < 1.0:
		return request * 2.5
	default:
		return request * 2.0
	}
}

// limitFloorMemory mirrors the CPU tiers for memory: 1.5x below 256Mi,
// 1.3x above.
func limitFloorMemory(request, limit float64) float64 {
	if limit > 0 {
		return limit
	}
	if request < 256*1024*1024 {
		return request * 1.5
	}
	return request * 1.3
}
