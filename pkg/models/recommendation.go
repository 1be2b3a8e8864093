package models

import "time"

// Severity classifies how large a recommended change is relative to the
// current manifest values.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

// Contribution records one strategy's share of an ensemble result.
type Contribution struct {
	Strategy   string  `json:"strategy"`
	Weight     float64 `json:"weight"`
	Confidence float64 `json:"confidence"`
}

// Recommendation is the finalized output for one container: the buffered,
// clamped request/limit values plus how they were produced.
type Recommendation struct {
	ID        string      `json:"id"`
	Container ContainerID `json:"container"`
	Strategy  string      `json:"strategy"`

	// Current manifest values, zero when the manifest declares none.
	Current ResourceValues `json:"current"`

	// Recommended values after buffer and clamping.
	Recommended ResourceValues `json:"recommended"`

	Confidence float64  `json:"confidence"`
	Severity   Severity `json:"severity"`

	// Per-resource severity, mirroring the overall bucket logic.
	CPUSeverity    Severity `json:"cpuSeverity"`
	MemorySeverity Severity `json:"memorySeverity"`

	// True when the safety floor or ceiling changed the raw estimate.
	CPUClamped    bool `json:"cpuClamped"`
	MemoryClamped bool `json:"memoryClamped"`

	// Populated for ensemble results only.
	Contributors []Contribution `json:"contributors,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ManifestEdit records the outcome of applying a recommendation to a
// manifest file. NoOp edits leave the file untouched.
type ManifestEdit struct {
	Path      string         `json:"path"`
	Container ContainerID    `json:"container"`
	Old       ResourceValues `json:"old"`
	New       ResourceValues `json:"new"`
	NoOp      bool           `json:"noOp"`
}
