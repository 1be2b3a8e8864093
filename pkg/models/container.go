package models

import "fmt"

// ContainerID identifies a single container within a workload.
type ContainerID struct {
	Namespace string
	Workload  string
	Container string
}

// String returns the namespace/workload/container key used throughout
// reports and storage.
func (c ContainerID) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Namespace, c.Workload, c.Container)
}

// ResourceValues holds a request/limit pair for CPU and memory.
// CPU is in cores, memory in bytes. A zero value means "not set".
type ResourceValues struct {
	CPURequest    float64
	CPULimit      float64
	MemoryRequest float64
	MemoryLimit   float64
}

// IsZero reports whether none of the four values are set.
func (r ResourceValues) IsZero() bool {
	return r.CPURequest == 0 && r.CPULimit == 0 && r.MemoryRequest == 0 && r.MemoryLimit == 0
}
