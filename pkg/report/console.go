package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// MaxConsoleRows bounds the per-row detail printed by WriteConsole.
const MaxConsoleRows = 50

// WriteConsole renders a human-readable report.
func WriteConsole(w io.Writer, env *Envelope) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	result := env.Result
	summary := env.Summary

	p("=== Comparison Summary ===")
	p("")
	p("Source: %s", env.Source)
	p("Target: %s", env.Target)
	p("Run:    %s", env.RunID)
	p("")

	key := result.Key
	if key.IsEmpty() {
		p("Key: none")
	} else {
		p("Key: %s (%s, uniqueness %.3f / %.3f)",
			keyLabel(key), key.Origin, key.SourceUniqueness, key.TargetUniqueness)
	}
	p("")

	rc := summary.RowCounts
	p("Row Counts:")
	p("  Source rows: %d", rc.SourceRows)
	p("  Target rows: %d", rc.TargetRows)
	p("  Unique to source 1: %d", rc.UniqueToSource)
	p("  Unique to source 2: %d", rc.UniqueToTarget)
	p("  Identical rows: %d", rc.Identical)
	p("  Rows with differences: %d", rc.Differences)
	if rc.DuplicateKeyRows > 0 {
		p("  Rows with duplicate keys: %d", rc.DuplicateKeyRows)
	}
	p("")

	p("Column Mapping:")
	for _, pair := range result.Mapping.Pairs {
		if pair.IsForced() {
			p("  %s -> %s (manual)", pair.Source, pair.Target)
		} else {
			p("  %s -> %s (%.2f)", pair.Source, pair.Target, pair.Score)
		}
	}
	if len(result.Mapping.SourceOnly) > 0 {
		p("  Source only: %s", strings.Join(result.Mapping.SourceOnly, ", "))
	}
	if len(result.Mapping.TargetOnly) > 0 {
		p("  Target only: %s", strings.Join(result.Mapping.TargetOnly, ", "))
	}
	p("")

	p("Column Statistics:")
	for _, stat := range summary.ColumnStatistics {
		p("  %s:", stat.Column)
		if stat.MatchedRows == 0 {
			p("    No matched rows")
			continue
		}
		p("    Match: %s", stat.MatchPercentage)
		p("    Diff:  %s", stat.DifferencePercentage)
	}
	if hi, ok := result.Summary.Highest(); ok && hi.Matched > 0 && len(result.Summary.Columns) > 1 {
		lo, _ := result.Summary.Lowest()
		p("  Highest match: %s (%s)", pairLabel(hi.SourceColumn, hi.TargetColumn), percent(hi.Rate))
		p("  Lowest match:  %s (%s)", pairLabel(lo.SourceColumn, lo.TargetColumn), percent(lo.Rate))
	}

	if len(result.Conditions) > 0 {
		p("")
		p("Conditions:")
		for _, c := range result.Conditions {
			p("  [%s] %s: %s", c.Severity, c.Kind, c.Message)
			if len(c.Values) > 0 {
				p("    values: %s", strings.Join(c.Values, "; "))
			}
		}
	}

	writeConsoleRows(p, result.Rows)

	return bw.Flush()
}

func writeConsoleRows(p func(string, ...any), rows []models.RowClassification) {
	printed := 0
	total := 0
	for _, row := range rows {
		if row.Status == models.RowStatusIdentical {
			continue
		}
		total++
		if printed >= MaxConsoleRows {
			continue
		}
		if printed == 0 {
			p("")
			p("Differences:")
		}
		printed++

		p("  %-8s key=%s", row.Status, formatKey(row.Key))
		for _, d := range row.Diffs {
			p("    %s: %s => %s", pairLabel(d.SourceColumn, d.TargetColumn), formatValue(d.SourceValue), formatValue(d.TargetValue))
		}
	}
	if total > printed {
		p("  ... and %d more", total-printed)
	}
}

func keyLabel(key models.IdentifierKey) string {
	parts := make([]string, len(key.SourceColumns))
	for i, src := range key.SourceColumns {
		tgt := ""
		if i < len(key.TargetColumns) {
			tgt = key.TargetColumns[i]
		}
		parts[i] = pairLabel(src, tgt)
	}
	return strings.Join(parts, ", ")
}
