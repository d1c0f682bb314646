package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/mhan0505/student-management-system/internal/dataset"
)

// maxReportRows bounds tables printed inline in the markdown report.
const maxReportRows = 20

// Markdown renders a sectioned, human-readable report of the run. Values are
// rounded here only; the Result keeps full precision.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Run: %s (%s)\n", r.RunID, r.StartedAt.Format("2006-01-02 15:04:05 MST")))
	b.WriteString(fmt.Sprintf("Rows: %d", r.InputRows))
	if r.Enriched != nil && r.Enriched.Len() != r.InputRows {
		b.WriteString(fmt.Sprintf(" (after treatment %d)", r.Enriched.Len()))
	}
	b.WriteString("\n")
	if r.Enriched != nil {
		b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Enriched.Columns())))
	}
	if !r.Options.ReferenceDate.IsZero() {
		b.WriteString(fmt.Sprintf("Reference date: %s\n", r.Options.ReferenceDate.Format(dataset.DateLayout)))
	}

	b.WriteString("\n[MISSING VALUES]\n")
	if r.Imputation.TotalMissing() == 0 {
		b.WriteString("- none\n")
	}
	for _, c := range r.Imputation {
		if c.Missing == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %d missing, %d filled with %s median\n", c.Column, c.Missing, c.Filled, c.GroupBy))
	}

	if len(r.Outliers) > 0 {
		b.WriteString("\n[OUTLIERS]\n")
		for _, s := range r.Outliers {
			bd := s.Bounds
			if !bd.Defined() {
				b.WriteString(fmt.Sprintf("- %s: no observations\n", bd.Column))
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %d outside [%.2f, %.2f] (Q1 %.2f, Q3 %.2f, IQR %.2f, k=%.2g)\n",
				bd.Column, s.Count(), bd.Lower, bd.Upper, bd.Q1, bd.Q3, bd.IQR, bd.Multiplier))
		}
	}
	if len(r.Treatments) > 0 {
		b.WriteString("\n[TREATMENT]\n")
		for _, t := range r.Treatments {
			switch t.Treatment {
			case TreatCap:
				b.WriteString(fmt.Sprintf("- %s: capped %d values\n", t.Column, t.Capped))
			case TreatRemove:
				b.WriteString(fmt.Sprintf("- %s: removed %d rows\n", t.Column, t.Removed))
			}
		}
	}

	if len(r.Summary.Rows) > 0 {
		b.WriteString(fmt.Sprintf("\n[GROUP-BY SUMMARY] by %s\n", r.Summary.GroupColumn))
		writeTable(&b, r.Summary.Dataset(), len(r.Summary.Rows))
	}
	if r.TopK != nil && r.TopK.Len() > 0 {
		b.WriteString(fmt.Sprintf("\n[TOP %d PER %s]\n", r.Options.TopK, strings.ToUpper(r.Summary.GroupColumn)))
		writeTable(&b, r.TopK, r.TopK.Len())
	}
	return b.String()
}

// writeTable prints up to limit rows of d as a markdown table.
func writeTable(b *strings.Builder, d *dataset.Dataset, limit int) {
	cols := d.Columns()
	b.WriteString("| ")
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString(" |\n|")
	for range cols {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	n := d.Len()
	if limit > maxReportRows {
		limit = maxReportRows
	}
	for row := 0; row < n && row < limit; row++ {
		b.WriteString("| ")
		for i, c := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(formatCell(d.Get(row, c))))
		}
		b.WriteString(" |\n")
	}
	if n > limit {
		b.WriteString(fmt.Sprintf("... %d more rows\n", n-limit))
	}
}

func formatCell(v dataset.Value) string {
	if f, ok := v.Float(); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return fmt.Sprintf("%.0f", f)
		}
		return fmt.Sprintf("%.2f", f)
	}
	return v.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
