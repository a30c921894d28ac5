package pipeline

import (
	"fmt"
	"strings"
)

const maxReportValues = 10

// Text renders the plain-text quality report written next to the tables.
func (r Report) Text(runID string) string {
	var b strings.Builder
	b.WriteString("Data Quality Report\n")
	b.WriteString("===================\n")
	if runID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", runID))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total observations: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Unique participants: %d\n", r.Sessions))
	b.WriteString(fmt.Sprintf("Unique videos: %d\n", r.Blocks))

	b.WriteString("\nMissing Data Summary:\n")
	if len(r.Missing) == 0 {
		b.WriteString("  (no key columns present)\n")
	}
	for _, m := range r.Missing {
		b.WriteString(fmt.Sprintf("  %s: %d (%.1f%%)\n", m.Column, m.Count, m.Percent))
	}

	if len(r.Frequencies) > 0 {
		b.WriteString("\nResponse Distributions:\n")
		for _, f := range r.Frequencies {
			b.WriteString(fmt.Sprintf("  %s:\n", f.Field))
			if len(f.Values) == 0 {
				b.WriteString("    (no responses)\n")
			}
			for i, v := range f.Values {
				if i == maxReportValues {
					b.WriteString(fmt.Sprintf("    ... %d more\n", len(f.Values)-maxReportValues))
					break
				}
				b.WriteString(fmt.Sprintf("    %s: %d\n", oneLine(v.Value), v.Count))
			}
		}
	}

	b.WriteString("\nQuality Issues:\n")
	if len(r.Issues) == 0 {
		b.WriteString("  - None\n")
	}
	for _, is := range r.Issues {
		b.WriteString("  - ")
		b.WriteString(is)
		b.WriteString("\n")
	}
	if len(r.Skipped) > 0 {
		b.WriteString("\nChecks Skipped:\n")
		for _, s := range r.Skipped {
			b.WriteString("  - ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func oneLine(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ") }
