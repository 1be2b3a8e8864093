package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
	"github.com/opscart/k8s-resource-resizer/pkg/models"
	"github.com/opscart/k8s-resource-resizer/pkg/strategy"
)

const mi = 1024 * 1024

// fakeProvider serves canned per-container series. A container with no
// entry gets an empty series, mirroring a backend with no data for it.
type fakeProvider struct {
	cpu    map[string]metrics.TimeSeries
	memory map[string]metrics.TimeSeries
	err    error
}

func (f *fakeProvider) Fetch(ctx context.Context, id models.ContainerID, kind metrics.Kind, lookback, step time.Duration) (metrics.TimeSeries, error) {
	if f.err != nil {
		return nil, f.err
	}
	if kind == metrics.KindCPU {
		return f.cpu[id.String()], nil
	}
	return f.memory[id.String()], nil
}

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeProvider) Name() string                         { return "fake" }

func flatSeries(n int, value float64) metrics.TimeSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(metrics.TimeSeries, n)
	for i := 0; i < n; i++ {
		series[i] = metrics.Sample{Timestamp: start.Add(time.Duration(i) * 5 * time.Minute), Value: value}
	}
	return series
}

func testTarget(workload string) Target {
	return Target{
		Path:      "deploy.yaml",
		Container: models.ContainerID{Namespace: "default", Workload: workload, Container: "app"},
		Current: models.ResourceValues{
			CPURequest:    0.1,
			CPULimit:      0.2,
			MemoryRequest: 100 * mi,
			MemoryLimit:   200 * mi,
		},
	}
}

func newTestEngine(t *testing.T, provider metrics.Provider) *Engine {
	t.Helper()
	eng, err := New(provider, strategy.DefaultConfig(), DefaultConstraints(), DefaultSeverityThresholds(), Options{
		Strategy: strategy.NameBasic,
	})
	if err != nil {
		t.Fatalf("Expected engine to build, got %v", err)
	}
	return eng
}

func TestRunFlatSeries(t *testing.T) {
	target := testTarget("api")
	provider := &fakeProvider{
		cpu:    map[string]metrics.TimeSeries{target.Container.String(): flatSeries(100, 0.1)},
		memory: map[string]metrics.TimeSeries{target.Container.String(): flatSeries(100, 100 * mi)},
	}

	results, err := newTestEngine(t, provider).Run(context.Background(), []Target{target})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	rec := results[0].Recommendation
	if results[0].Err != nil {
		t.Fatalf("Expected success, got %v", results[0].Err)
	}

	// Flat usage at the current request: the request stays at observed
	// usage and only the limit carries the 10% buffer.
	if math.Abs(rec.Recommended.CPURequest-0.1) > 1e-9 {
		t.Errorf("Expected CPU request 0.1, got %f", rec.Recommended.CPURequest)
	}
	if math.Abs(rec.Recommended.CPULimit-0.11) > 1e-9 {
		t.Errorf("Expected CPU limit 0.11, got %f", rec.Recommended.CPULimit)
	}
	if rec.ID == "" {
		t.Error("Expected a generated recommendation ID")
	}
}

func TestRunFlatSeriesAlreadySizedIsNone(t *testing.T) {
	target := Target{
		Path:      "deploy.yaml",
		Container: models.ContainerID{Namespace: "default", Workload: "api", Container: "app"},
		Current: models.ResourceValues{
			CPURequest:    0.1,
			CPULimit:      0.115,
			MemoryRequest: 100 * mi,
			MemoryLimit:   115 * mi,
		},
	}
	provider := &fakeProvider{
		cpu:    map[string]metrics.TimeSeries{target.Container.String(): flatSeries(100, 0.1)},
		memory: map[string]metrics.TimeSeries{target.Container.String(): flatSeries(100, 100 * mi)},
	}

	constraints := DefaultConstraints()
	constraints.CPUBuffer = 1.15
	constraints.MemoryBuffer = 1.15

	eng, err := New(provider, strategy.DefaultConfig(), constraints, DefaultSeverityThresholds(), Options{
		Strategy: strategy.NameBasic,
	})
	if err != nil {
		t.Fatalf("Expected engine to build, got %v", err)
	}

	results, err := eng.Run(context.Background(), []Target{target})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	rec := results[0].Recommendation
	if results[0].Err != nil {
		t.Fatalf("Expected success, got %v", results[0].Err)
	}

	// A manifest already sized to observed usage plus the buffer is not a
	// change worth flagging.
	if rec.Severity != models.SeverityNone {
		t.Errorf("Expected severity none, got %s (recommended %+v)", rec.Severity, rec.Recommended)
	}
	if rec.CPUSeverity != models.SeverityNone {
		t.Errorf("Expected CPU severity none, got %s", rec.CPUSeverity)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	good := testTarget("api")
	bad := testTarget("worker") // no data registered

	provider := &fakeProvider{
		cpu:    map[string]metrics.TimeSeries{good.Container.String(): flatSeries(100, 0.1)},
		memory: map[string]metrics.TimeSeries{good.Container.String(): flatSeries(100, 100 * mi)},
	}

	results, err := newTestEngine(t, provider).Run(context.Background(), []Target{good, bad})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if results[0].Err != nil {
		t.Errorf("Expected first target to succeed, got %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("Expected second target to fail on missing data")
	}

	var insufficientErr *strategy.InsufficientDataError
	if !errors.As(results[1].Err, &insufficientErr) {
		t.Errorf("Expected InsufficientDataError, got %v", results[1].Err)
	}
}

// stallingProvider delegates to fake but blocks fetches for one container
// until the context is cancelled.
type stallingProvider struct {
	fake  *fakeProvider
	stall string
}

func (p *stallingProvider) Fetch(ctx context.Context, id models.ContainerID, kind metrics.Kind, lookback, step time.Duration) (metrics.TimeSeries, error) {
	if id.String() == p.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.fake.Fetch(ctx, id, kind, lookback, step)
}

func (p *stallingProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *stallingProvider) Name() string                         { return "stalling" }

func TestRunTimeoutKeepsFinishedResults(t *testing.T) {
	fast := testTarget("api")
	slow := testTarget("worker")

	provider := &stallingProvider{
		fake: &fakeProvider{
			cpu:    map[string]metrics.TimeSeries{fast.Container.String(): flatSeries(100, 0.1)},
			memory: map[string]metrics.TimeSeries{fast.Container.String(): flatSeries(100, 100 * mi)},
		},
		stall: slow.Container.String(),
	}

	eng, err := New(provider, strategy.DefaultConfig(), DefaultConstraints(), DefaultSeverityThresholds(), Options{
		Strategy:    strategy.NameBasic,
		Parallelism: 2,
		Timeout:     100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Expected engine to build, got %v", err)
	}

	results, err := eng.Run(context.Background(), []Target{fast, slow})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded from Run, got %v", err)
	}

	if results[0].Err != nil {
		t.Errorf("Expected finished target to keep its result, got %v", results[0].Err)
	}
	if results[0].Recommendation == nil {
		t.Error("Expected a recommendation for the finished target")
	}
	if !errors.Is(results[1].Err, context.DeadlineExceeded) {
		t.Errorf("Expected stalled target to report the cancellation, got %v", results[1].Err)
	}
}

func TestRunProviderError(t *testing.T) {
	target := testTarget("api")
	provider := &fakeProvider{err: fmt.Errorf("connection refused")}

	results, err := newTestEngine(t, provider).Run(context.Background(), []Target{target})
	if err != nil {
		t.Fatalf("Expected no group error, got %v", err)
	}
	if results[0].Err == nil {
		t.Error("Expected provider error in the result")
	}
}

func TestNewRejectsInvalidConstraints(t *testing.T) {
	constraints := DefaultConstraints()
	constraints.CPUFloor = 10
	constraints.CPUCeiling = 1

	_, err := New(&fakeProvider{}, strategy.DefaultConfig(), constraints, DefaultSeverityThresholds(), Options{Strategy: strategy.NameBasic})
	var violation *ConstraintViolationError
	if !errors.As(err, &violation) {
		t.Errorf("Expected ConstraintViolationError, got %v", err)
	}
	if violation != nil && violation.Resource != "cpu" {
		t.Errorf("Expected cpu violation, got %s", violation.Resource)
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New(&fakeProvider{}, strategy.DefaultConfig(), DefaultConstraints(), DefaultSeverityThresholds(), Options{Strategy: "nope"})
	if err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func TestFinalizeClampInvariant(t *testing.T) {
	eng := newTestEngine(t, &fakeProvider{})
	c := DefaultConstraints()

	estimates := []*strategy.Estimate{
		{Strategy: "basic", CPURequest: 0.001, CPULimit: 0.002, MemoryRequest: mi, MemoryLimit: 2 * mi},
		{Strategy: "basic", CPURequest: 100, CPULimit: 200, MemoryRequest: 1e13, MemoryLimit: 2e13},
		{Strategy: "basic", CPURequest: 0.5, CPULimit: 1.0, MemoryRequest: 512 * mi, MemoryLimit: 1024 * mi},
		{Strategy: "basic", CPURequest: 0.5, MemoryRequest: 512 * mi}, // no limits from the strategy
	}

	for i, est := range estimates {
		rec := eng.Finalize(testTarget("api"), est)
		v := rec.Recommended

		if v.CPURequest < c.CPUFloor || v.CPULimit > c.CPUCeiling || v.CPURequest > v.CPULimit {
			t.Errorf("case %d: CPU invariant violated: floor=%g req=%g lim=%g ceiling=%g",
				i, c.CPUFloor, v.CPURequest, v.CPULimit, c.CPUCeiling)
		}
		if v.MemoryRequest < c.MemoryFloor || v.MemoryLimit > c.MemoryCeiling || v.MemoryRequest > v.MemoryLimit {
			t.Errorf("case %d: memory invariant violated: floor=%g req=%g lim=%g ceiling=%g",
				i, c.MemoryFloor, v.MemoryRequest, v.MemoryLimit, c.MemoryCeiling)
		}
	}
}

func TestFinalizeClampedFlag(t *testing.T) {
	eng := newTestEngine(t, &fakeProvider{})

	rec := eng.Finalize(testTarget("api"), &strategy.Estimate{
		Strategy:      "basic",
		CPURequest:    0.0001, // below floor
		CPULimit:      0.0002,
		MemoryRequest: 512 * mi,
		MemoryLimit:   1024 * mi,
	})

	if !rec.CPUClamped {
		t.Error("Expected CPU clamped flag")
	}
	if rec.MemoryClamped {
		t.Error("Expected memory within bounds")
	}
}

func TestLimitTiersWhenStrategyGivesNone(t *testing.T) {
	tests := []struct {
		request float64
		want    float64
	}{
		{0.05, 0.15}, // small bursts 3x
		{0.5, 1.25},  // medium bursts 2.5x
		{2.0, 4.0},   // large bursts 2x
	}
	for _, tt := range tests {
		got := limitFloorCPU(tt.request, 0)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("limitFloorCPU(%g): expected %g, got %g", tt.request, tt.want, got)
		}
	}

	// A limit from the strategy is authoritative.
	if got := limitFloorCPU(0.5, 0.6); got != 0.6 {
		t.Errorf("Expected strategy limit 0.6 kept, got %g", got)
	}

	if got := limitFloorMemory(100*mi, 0); math.Abs(got-150*mi) > 1 {
		t.Errorf("Expected 1.5x memory tier, got %g", got)
	}
	if got := limitFloorMemory(512*mi, 0); math.Abs(got-512*mi*1.3) > 1 {
		t.Errorf("Expected 1.3x memory tier, got %g", got)
	}
}

func TestSeverityBuckets(t *testing.T) {
	thresholds := DefaultSeverityThresholds()

	tests := []struct {
		current     float64
		recommended float64
		want        models.Severity
	}{
		{100, 103, models.SeverityNone},      // 3%
		{100, 110, models.SeverityMinor},     // 10%
		{100, 90, models.SeverityMinor},      // symmetric decrease
		{100, 150, models.SeverityModerate},  // 50%
		{100, 200, models.SeverityCritical},  // 100%
		{100, 10, models.SeverityCritical},   // 90% decrease
		{0, 100, models.SeverityModerate},    // newly added value
		{0, 0, models.SeverityNone},          // nothing either side
		{100, 105, models.SeverityNone},      // exactly at the 5% edge
		{100, 125, models.SeverityMinor},     // exactly at the 25% edge
		{100, 175, models.SeverityModerate},  // exactly at the 75% edge
	}

	for _, tt := range tests {
		got := thresholds.classify(tt.current, tt.recommended)
		if got != tt.want {
			t.Errorf("classify(%g, %g): expected %s, got %s", tt.current, tt.recommended, tt.want, got)
		}
	}
}

func TestClassifyWholeRecommendation(t *testing.T) {
	thresholds := DefaultSeverityThresholds()

	current := models.ResourceValues{CPURequest: 0.1, CPULimit: 0.2, MemoryRequest: 100 * mi, MemoryLimit: 200 * mi}
	recommended := models.ResourceValues{CPURequest: 0.11, CPULimit: 0.2, MemoryRequest: 250 * mi, MemoryLimit: 260 * mi}

	overall, cpu, memory := thresholds.Classify(current, recommended)
	if cpu != models.SeverityMinor {
		t.Errorf("Expected minor CPU severity, got %s", cpu)
	}
	if memory != models.SeverityCritical {
		t.Errorf("Expected critical memory severity, got %s", memory)
	}
	if overall != models.SeverityCritical {
		t.Errorf("Expected overall severity to be the worst, got %s", overall)
	}
}

func TestBufferValidation(t *testing.T) {
	c := DefaultConstraints()
	c.CPUBuffer = 0.9
	if err := c.Validate(); err == nil {
		t.Error("Expected error for buffer below 1.0")
	}
}
