package engine

import "fmt"

// ConstraintViolationError reports an impossible floor/ceiling pair. It is
// a configuration error and aborts the run before any analysis.
type ConstraintViolationError struct {
	Resource string
	Floor    float64
	Ceiling  float64
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s constraints invalid: floor %g exceeds ceiling %g", e.Resource, e.Floor, e.Ceiling)
}

// SafetyConstraints bounds every strategy's output: a multiplicative buffer
// widening the limit, then an absolute clamp of both values to
// [floor, ceiling]. CPU in cores, memory in bytes. Resolved once at startup
// and passed explicitly into every evaluation.
type SafetyConstraints struct {
	CPUFloor   float64
	CPUCeiling float64
	CPUBuffer  float64

	MemoryFloor   float64
	MemoryCeiling float64
	MemoryBuffer  float64
}

// DefaultConstraints mirror common node sizing: 10m..64 cores and
// 32Mi..256Gi, with a 10% CPU and 15% memory buffer.
func DefaultConstraints() SafetyConstraints {
	return SafetyConstraints{
		CPUFloor:      0.01,
		CPUCeiling:    64.0,
		CPUBuffer:     1.10,
		MemoryFloor:   32 * 1024 * 1024,
		MemoryCeiling: 256 * 1024 * 1024 * 1024,
		MemoryBuffer:  1.15,
	}
}

// Validate rejects inverted bounds. Values outside range are never an
// error at apply time; they are clamped.
func (c SafetyConstraints) Validate() error {
	if c.CPUFloor > c.CPUCeiling {
		return &ConstraintViolationError{Resource: "cpu", Floor: c.CPUFloor, Ceiling: c.CPUCeiling}
	}
	if c.MemoryFloor > c.MemoryCeiling {
		return &ConstraintViolationError{Resource: "memory", Floor: c.MemoryFloor, Ceiling: c.MemoryCeiling}
	}
	if c.CPUBuffer < 1.0 || c.MemoryBuffer < 1.0 {
		return fmt.Errorf("buffers must be >= 1.0, got cpu=%g memory=%g", c.CPUBuffer, c.MemoryBuffer)
	}
	return nil
}

// applyPair buffers and clamps a request/limit pair for one resource,
// reporting whether either value hit a bound. The buffer widens the limit
// only; the request stays at the raw estimate so a manifest already sized
// to observed usage reads as unchanged. The request never ends up above
// the limit.
func applyPair(request, limit, buffer, floor, ceiling float64) (newRequest, newLimit float64, clamped bool) {
	newRequest, reqClamped := clamp(request, floor, ceiling)
	newLimit, limClamped := clamp(limit*buffer, floor, ceiling)
	if newLimit < newRequest {
		newLimit = newRequest
	}
	return newRequest, newLimit, reqClamped || limClamped
}

func clamp(v, floor, ceiling float64) (float64, bool) {
	if v < floor {
		return floor, true
	}
	if v > ceiling {
		return ceiling, true
	}
	return v, false
}
