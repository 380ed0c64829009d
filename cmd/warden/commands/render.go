package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wardenscan/warden/internal/finding"
)

var severityColor = map[finding.Severity]*color.Color{
	finding.SeverityCritical: color.New(color.FgRed, color.Bold),
	finding.SeverityHigh:     color.New(color.FgRed),
	finding.SeverityMedium:   color.New(color.FgYellow),
	finding.SeverityLow:      color.New(color.FgCyan),
	finding.SeverityInfo:     color.New(color.FgWhite),
}

// renderJSON writes report as indented JSON.
func renderJSON(w io.Writer, report *finding.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}

// renderTable writes a human-readable severity-colored summary table
// followed by a one-line-per-finding table, in the style the teacher's CLI
// uses go-pretty for tabular output.
func renderTable(w io.Writer, report *finding.Report, noColor bool) {
	if noColor {
		color.NoColor = true
	}

	fmt.Fprintf(w, "scanned %d files in %s, %d findings (interrupted=%v)\n\n",
		report.Summary.FilesScanned, report.Summary.Duration, report.Summary.TotalFindings, report.Summary.Interrupted)

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.AppendHeader(table.Row{"Severity", "Count"})

	for _, sev := range []finding.Severity{
		finding.SeverityCritical, finding.SeverityHigh, finding.SeverityMedium,
		finding.SeverityLow, finding.SeverityInfo,
	} {
		count := report.Summary.BySeverity[sev.String()]
		if count == 0 {
			continue
		}

		summary.AppendRow(table.Row{colorize(sev, sev.String()), count})
	}

	summary.Render()

	if len(report.Findings) == 0 {
		return
	}

	fmt.Fprintln(w)

	details := table.NewWriter()
	details.SetOutputMirror(w)
	details.AppendHeader(table.Row{"Severity", "Analyzer", "File", "Line", "Message"})

	for _, f := range report.Findings {
		msg := f.Message
		if f.Description != "" {
			msg = f.Description
		}

		details.AppendRow(table.Row{colorize(f.Severity, f.Severity.String()), f.Analyzer, f.File, f.Line, msg})
	}

	details.Render()
}

func colorize(sev finding.Severity, text string) string {
	c, ok := severityColor[sev]
	if !ok {
		return text
	}

	return c.Sprint(text)
}
