// Package cluster discovers evaluation targets from a live cluster and
// serves instant usage from the metrics API when no Prometheus backend is
// reachable. It never mutates cluster state.
package cluster

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/opscart/k8s-resource-resizer/pkg/engine"
	"github.com/opscart/k8s-resource-resizer/pkg/metrics"
	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// Client wraps the Kubernetes clientsets used for target discovery and
// instant metrics.
type Client struct {
	clientset     *kubernetes.Clientset
	metricsClient *metricsv.Clientset
}

// New builds a client from the ambient kubeconfig.
func New() (*Client, error) {
	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return &Client{clientset: clientset, metricsClient: metricsClient}, nil
}

// ListTargets returns one target per container across deployments in the
// namespace (or all namespaces). Cluster targets carry no manifest path;
// they feed report-only runs.
func (c *Client) ListTargets(ctx context.Context, namespace string, allNamespaces bool) ([]engine.Target, error) {
	namespaces := []string{namespace}
	if allNamespaces {
		nsList, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list namespaces: %w", err)
		}
		namespaces = namespaces[:0]
		for _, ns := range nsList.Items {
			namespaces = append(namespaces, ns.Name)
		}
	}

	var targets []engine.Target
	for _, ns := range namespaces {
		deployments, err := c.clientset.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list deployments in %s: %w", ns, err)
		}
		for _, deploy := range deployments.Items {
			for _, container := range deploy.Spec.Template.Spec.Containers {
				targets = append(targets, engine.Target{
					Container: models.ContainerID{
						Namespace: ns,
						Workload:  deploy.Name,
						Container: container.Name,
					},
					Current: currentValues(container),
				})
			}
		}
	}
	return targets, nil
}

func currentValues(container corev1.Container) models.ResourceValues {
	var vals models.ResourceValues
	if q, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
		vals.CPURequest = q.AsApproximateFloat64()
	}
	if q, ok := container.Resources.Requests[corev1.ResourceMemory]; ok {
		vals.MemoryRequest = q.AsApproximateFloat64()
	}
	if q, ok := container.Resources.Limits[corev1.ResourceCPU]; ok {
		vals.CPULimit = q.AsApproximateFloat64()
	}
	if q, ok := container.Resources.Limits[corev1.ResourceMemory]; ok {
		vals.MemoryLimit = q.AsApproximateFloat64()
	}
	return vals
}

// InstantProvider serves the metrics API's current usage as a one-sample
// series. It is a degraded fallback: most strategies will reject it as
// insufficient, which is the honest answer without history.
type InstantProvider struct {
	client *Client
}

// NewInstantProvider wraps a cluster client as a metrics provider.
func NewInstantProvider(client *Client) *InstantProvider {
	return &InstantProvider{client: client}
}

func (p *InstantProvider) Fetch(ctx context.Context, id models.ContainerID, kind metrics.Kind, lookback, step time.Duration) (metrics.TimeSeries, error) {
	podMetrics, err := p.client.metricsClient.MetricsV1beta1().PodMetricses(id.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get pod metrics: %w", err)
	}

	now := time.Now()
	var series metrics.TimeSeries
	for _, pm := range podMetrics.Items {
		if extractWorkloadName(pm.Name) != id.Workload {
			continue
		}
		for _, container := range pm.Containers {
			if container.Name != id.Container {
				continue
			}
			var value float64
			switch kind {
			case metrics.KindCPU:
				value = container.Usage.Cpu().AsApproximateFloat64()
			case metrics.KindMemory:
				value = container.Usage.Memory().AsApproximateFloat64()
			}
			series = append(series, metrics.Sample{Timestamp: now, Value: value})
		}
	}
	return series, nil
}

func (p *InstantProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.clientset.Discovery().ServerVersion()
	return err == nil
}

func (p *InstantProvider) Name() string {
	return "metrics-server"
}

// extractWorkloadName strips the replica hash and pod suffix from a pod
// name: "api-server-7d9f8b-xyz" -> "api-server", "postgres-0" ->
// "postgres".
func extractWorkloadName(podName string) string {
	if len(podName) > 2 && podName[len(podName)-2] == '-' {
		lastChar := podName[len(podName)-1]
		if lastChar >= '0' && lastChar <= '9' {
			return podName[:len(podName)-2]
		}
	}

	dashCount := 0
	for i := len(podName) - 1; i >= 0; i-- {
		if podName[i] == '-' {
			dashCount++
			if dashCount == 2 {
				return podName[:i]
			}
		}
	}
	return podName
}
