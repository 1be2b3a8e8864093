package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// GenerateCSV creates a CSV report
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	// Write header
	header := []string{
		"Namespace",
		"Workload",
		"Container",
		"Path",
		"Strategy",
		"Current",
		"Recommended",
		"Confidence",
		"Severity",
		"Clamped",
		"Error",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range report.Rows {
		record := []string{
			row.Container.Namespace,
			row.Container.Workload,
			row.Container.Container,
			row.Path,
			row.Strategy,
			row.Current,
			row.Recommended,
			fmt.Sprintf("%.2f", row.Confidence),
			string(row.Severity),
			fmt.Sprintf("%t", row.Clamped),
			row.Error,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	// Write summary rows
	w.Write([]string{})
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Targets", fmt.Sprintf("%d", report.Targets)})
	w.Write([]string{"Succeeded", fmt.Sprintf("%d", report.Succeeded)})
	w.Write([]string{"Failed", fmt.Sprintf("%d", report.Failed)})
	w.Write([]string{"Max Severity", string(report.MaxSeverity)})

	return nil
}
