package analysis

import (
	"fmt"
	"strings"
)

// Markdown renders the report in bracketed sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	if len(r.Warnings) > 0 {
		for _, w := range r.Warnings {
			b.WriteString(fmt.Sprintf("Warning: %s\n", w))
		}
	}

	p := r.Participant
	b.WriteString("\n[PARTICIPANTS]\n")
	b.WriteString(fmt.Sprintf("- Total participants: %d\n", p.Participants))
	if p.FirstStart != "" {
		b.WriteString(fmt.Sprintf("- Data collection period: %s to %s (%d days)\n", p.FirstStart, p.LastStart, p.PeriodDays))
	}
	if p.DurationMinutes.Count > 0 {
		d := p.DurationMinutes
		b.WriteString(fmt.Sprintf("- Session duration: %.1f ± %.1f minutes (median %.1f, min %.1f, max %.1f)\n", d.Mean, d.Std, d.Median, d.Min, d.Max))
	} else {
		b.WriteString("- Session duration: not available\n")
	}
	if len(p.Languages) > 0 {
		b.WriteString("- Languages: ")
		for i, kv := range p.Languages {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
		}
		b.WriteString("\n")
	}
	if v := p.VideosPerParticipant; v.Count > 0 {
		b.WriteString(fmt.Sprintf("- Videos per participant: %.1f (range %.0f-%.0f)\n", v.Mean, v.Min, v.Max))
	}

	v := r.Video
	b.WriteString("\n[VIDEOS]\n")
	b.WriteString(fmt.Sprintf("- Observations with responses (%s): %d\n", v.KeyField, v.Observations))
	b.WriteString(fmt.Sprintf("- Participants with responses: %d\n", v.Participants))
	b.WriteString(fmt.Sprintf("- Videos with responses: %d\n", v.Videos))
	if s := v.ResponsesPerVideo; s.Count > 0 {
		b.WriteString(fmt.Sprintf("- Responses per video: %.1f ± %.1f (range %.0f-%.0f)\n", s.Mean, s.Std, s.Min, s.Max))
	}

	b.WriteString("\n[RESPONSE PATTERNS]\n")
	for _, c := range r.Patterns {
		b.WriteString(fmt.Sprintf("%s:\n", c.Name))
		for _, f := range c.Fields {
			b.WriteString(fmt.Sprintf("- %s: ", f.Name))
			switch f.Kind {
			case KindNumeric:
				s := f.Stats
				b.WriteString(fmt.Sprintf("%d responses, mean %.2f ± %.2f (median %.4g, min %.4g, max %.4g)", f.Responses, s.Mean, s.Std, s.Median, s.Min, s.Max))
			case KindCategorical:
				b.WriteString(fmt.Sprintf("%d responses, %d categories; most common %s (%.1f%%)", f.Responses, f.Unique, safeVal(f.MostCommon), f.MostCommonRate*100))
				if len(f.Top) > 1 {
					b.WriteString(" — top: ")
					for i, kv := range f.Top {
						if i > 0 {
							b.WriteString(", ")
						}
						b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
					}
				}
			default:
				b.WriteString(f.Kind)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
