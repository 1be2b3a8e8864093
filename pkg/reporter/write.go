package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Write renders the report in the reporter's configured format.
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatText, "":
		return writeText(report, w)
	default:
		return fmt.Errorf("unknown report format: %s", r.format)
	}
}

func writeText(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "Resource recommendations (strategy=%s window=%s)\n", report.Strategy, report.Window)
	fmt.Fprintf(w, "Generated at %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTAINER\tSTRATEGY\tCURRENT\tRECOMMENDED\tCONF\tSEVERITY\tNOTES")
	for _, row := range report.Rows {
		notes := ""
		if row.Clamped {
			notes = "clamped"
		}
		if row.Error != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\terror: %s\n", row.Container, row.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			row.Container, row.Strategy, row.Current, row.Recommended,
			row.Confidence, row.Severity, notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d targets, %d succeeded, %d failed\n",
		report.Targets, report.Succeeded, report.Failed)
	if report.Succeeded > 0 {
		fmt.Fprintf(w, "severity: none=%d minor=%d moderate=%d critical=%d (max %s)\n",
			report.BySeverity["none"], report.BySeverity["minor"],
			report.BySeverity["moderate"], report.BySeverity["critical"],
			report.MaxSeverity)
	}
	return nil
}
