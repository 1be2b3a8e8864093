package reporter

import (
	"fmt"
	"time"

	"github.com/opscart/k8s-resource-resizer/pkg/engine"
	"github.com/opscart/k8s-resource-resizer/pkg/manifest"
	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatJSON ReportFormat = "json"
	FormatYAML ReportFormat = "yaml"
	FormatCSV  ReportFormat = "csv"
)

// Row is one container's outcome in a report.
type Row struct {
	Container   models.ContainerID `json:"container" yaml:"container"`
	Path        string             `json:"path,omitempty" yaml:"path,omitempty"`
	Strategy    string             `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Current     string             `json:"current,omitempty" yaml:"current,omitempty"`
	Recommended string             `json:"recommended,omitempty" yaml:"recommended,omitempty"`
	Confidence  float64            `json:"confidence" yaml:"confidence"`
	Severity    models.Severity    `json:"severity,omitempty" yaml:"severity,omitempty"`
	Clamped     bool               `json:"clamped,omitempty" yaml:"clamped,omitempty"`
	Error       string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report contains all data for generating reports
type Report struct {
	Strategy    string          `json:"strategy" yaml:"strategy"`
	Window      string          `json:"window" yaml:"window"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Rows        []Row           `json:"rows" yaml:"rows"`
	Targets     int             `json:"targets" yaml:"targets"`
	Succeeded   int             `json:"succeeded" yaml:"succeeded"`
	Failed      int             `json:"failed" yaml:"failed"`
	BySeverity  map[string]int  `json:"by_severity" yaml:"by_severity"`
	MaxSeverity models.Severity `json:"max_severity" yaml:"max_severity"`
}

// Reporter turns engine results into reports.
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

// Generate builds a report from engine results.
func (r *Reporter) Generate(results []engine.Result, strategy, window string) *Report {
	report := &Report{
		Strategy:    strategy,
		Window:      window,
		GeneratedAt: time.Now().UTC(),
		BySeverity:  make(map[string]int),
		MaxSeverity: models.SeverityNone,
	}

	for _, res := range results {
		report.Targets++
		row := Row{
			Container: res.Target.Container,
			Path:      res.Target.Path,
		}

		if res.Err != nil {
			report.Failed++
			row.Error = res.Err.Error()
			report.Rows = append(report.Rows, row)
			continue
		}

		rec := res.Recommendation
		report.Succeeded++
		row.Strategy = rec.Strategy
		row.Current = formatValues(rec.Current)
		row.Recommended = formatValues(rec.Recommended)
		row.Confidence = rec.Confidence
		row.Severity = rec.Severity
		row.Clamped = rec.CPUClamped || rec.MemoryClamped

		report.BySeverity[string(rec.Severity)]++
		if severityRank(rec.Severity) > severityRank(report.MaxSeverity) {
			report.MaxSeverity = rec.Severity
		}

		report.Rows = append(report.Rows, row)
	}

	return report
}

func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return 3
	case models.SeverityModerate:
		return 2
	case models.SeverityMinor:
		return 1
	default:
		return 0
	}
}

func formatValues(v models.ResourceValues) string {
	return fmt.Sprintf("cpu %s/%s mem %s/%s",
		fmtCPU(v.CPURequest), fmtCPU(v.CPULimit),
		fmtMemory(v.MemoryRequest), fmtMemory(v.MemoryLimit))
}

func fmtCPU(cores float64) string {
	if cores <= 0 {
		return "-"
	}
	return manifest.FormatCPU(cores)
}

func fmtMemory(bytes float64) string {
	if bytes <= 0 {
		return "-"
	}
	return manifest.FormatMemory(bytes)
}
