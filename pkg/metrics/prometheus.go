package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// PrometheusProvider fetches historical usage from a Prometheus-compatible
// backend via range queries.
type PrometheusProvider struct {
	promAPI v1.API
	verbose bool
}

// NewPrometheusProvider builds a provider for the given server URL.
func NewPrometheusProvider(url string, verbose bool) (*PrometheusProvider, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &PrometheusProvider{promAPI: v1.NewAPI(client), verbose: verbose}, nil
}

// Fetch runs a range query for the container's usage. CPU is queried as a
// rate over the counter so spikes are smoothed at the scrape interval;
// memory uses the working set gauge.
func (p *PrometheusProvider) Fetch(ctx context.Context, id models.ContainerID, kind Kind, lookback, step time.Duration) (TimeSeries, error) {
	endTime := time.Now()
	startTime := endTime.Add(-lookback)

	var query string
	switch kind {
	case KindCPU:
		query = fmt.Sprintf(
			`sum(rate(container_cpu_usage_seconds_total{namespace=%q,pod=~"%s-[a-z0-9]+-[a-z0-9]+",container=%q}[5m])) by (container)`,
			id.Namespace, id.Workload, id.Container,
		)
	case KindMemory:
		query = fmt.Sprintf(
			`sum(container_memory_working_set_bytes{namespace=%q,pod=~"%s-[a-z0-9]+-[a-z0-9]+",container=%q}) by (container)`,
			id.Namespace, id.Workload, id.Container,
		)
	default:
		return nil, fmt.Errorf("unknown metric kind %q", kind)
	}

	r := v1.Range{Start: startTime, End: endTime, Step: step}

	if p.verbose {
		fmt.Printf("[DEBUG] Prometheus %s query: %s\n", kind, query)
		fmt.Printf("[DEBUG] Time range: %s to %s (step: %s)\n",
			startTime.Format(time.RFC3339), endTime.Format(time.RFC3339), step)
	}

	result, warnings, err := p.promAPI.QueryRange(ctx, query, r)
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}
	if len(warnings) > 0 && p.verbose {
		fmt.Printf("[DEBUG] Prometheus warnings: %v\n", warnings)
	}

	series, err := parseMatrix(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s results: %w", kind, err)
	}

	if p.verbose {
		fmt.Printf("[DEBUG] Parsed %d %s samples for %s\n", len(series), kind, id)
	}
	return series, nil
}

// IsAvailable probes the backend with a trivial query.
func (p *PrometheusProvider) IsAvailable(ctx context.Context) bool {
	_, _, err := p.promAPI.Query(ctx, "up", time.Now())
	return err == nil
}

func (p *PrometheusProvider) Name() string {
	return "prometheus"
}

// parseMatrix flattens a range-query matrix into a single ordered series.
// An empty matrix yields an empty series so the caller can decide on
// sufficiency.
func parseMatrix(result model.Value) (TimeSeries, error) {
	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}
	if len(matrix) == 0 {
		return TimeSeries{}, nil
	}

	var series TimeSeries
	for _, stream := range matrix {
		for _, value := range stream.Values {
			series = append(series, Sample{
				Timestamp: value.Timestamp.Time(),
				Value:     float64(value.Value),
			})
		}
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	return series, nil
}
