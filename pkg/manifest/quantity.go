package manifest

import (
	"fmt"
	"math"

	"k8s.io/apimachinery/pkg/api/resource"
)

const mebibyte = 1024 * 1024

// FormatCPU renders cores as the millicore form manifests conventionally
// use, e.g. 0.1 -> "100m".
func FormatCPU(cores float64) string {
	return fmt.Sprintf("%dm", int64(math.Round(cores*1000)))
}

// FormatMemory renders bytes rounded to whole mebibytes, e.g. "512Mi".
func FormatMemory(bytes float64) string {
	mi := int64(math.Round(bytes / mebibyte))
	if mi < 1 {
		mi = 1
	}
	return fmt.Sprintf("%dMi", mi)
}

// ParseCPU converts any Kubernetes CPU quantity ("100m", "0.5", "1") to
// cores.
func ParseCPU(s string) (float64, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", s, err)
	}
	return q.AsApproximateFloat64(), nil
}

// ParseMemory converts any Kubernetes memory quantity ("512Mi", "1Gi",
// "128974848") to bytes.
func ParseMemory(s string) (float64, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", s, err)
	}
	return q.AsApproximateFloat64(), nil
}
