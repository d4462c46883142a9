package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// WriteCSV renders the report as sectioned CSV: row counts, column statistics,
// conditions, then one line per differing cell (or per unmatched row).
func WriteCSV(w io.Writer, env *Envelope) error {
	cw := csv.NewWriter(w)
	rc := env.Summary.RowCounts

	records := [][]string{
		{"Row Counts"},
		{"source_rows", strconv.Itoa(rc.SourceRows)},
		{"target_rows", strconv.Itoa(rc.TargetRows)},
		{"unique_to_source1", strconv.Itoa(rc.UniqueToSource)},
		{"unique_to_source2", strconv.Itoa(rc.UniqueToTarget)},
		{"identical", strconv.Itoa(rc.Identical)},
		{"differences", strconv.Itoa(rc.Differences)},
		{"duplicate_key_rows", strconv.Itoa(rc.DuplicateKeyRows)},
		{},
		{"Column Statistics"},
		{"Column", "Match %", "Difference %"},
	}
	for _, stat := range env.Summary.ColumnStatistics {
		records = append(records, []string{stat.Column, stat.MatchPercentage, stat.DifferencePercentage})
	}

	records = append(records, []string{}, []string{"Conditions"}, []string{"Kind", "Severity", "Side", "Message", "Values"})
	for _, c := range env.Result.Conditions {
		records = append(records, []string{string(c.Kind), string(c.Severity), string(c.Side), c.Message, strings.Join(c.Values, "; ")})
	}

	records = append(records, []string{}, []string{"Differences"},
		[]string{"Status", "Key", "Source Column", "Target Column", "Source Value", "Target Value"})
	for _, row := range env.Result.Rows {
		switch row.Status {
		case models.RowStatusIdentical:
			continue
		case models.RowStatusModified:
			for _, d := range row.Diffs {
				records = append(records, []string{
					string(row.Status), formatKey(row.Key),
					d.SourceColumn, d.TargetColumn,
					formatValue(d.SourceValue), formatValue(d.TargetValue),
				})
			}
		default:
			records = append(records, []string{string(row.Status), formatKey(row.Key), "", "", "", ""})
		}
	}

	// WriteAll flushes.
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}
