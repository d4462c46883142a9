// Package report renders comparison results for people and downstream tools.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// Format selects a report writer.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q (must be console, json, or csv)", apperrors.ErrInvalidConfig, s)
}

// Envelope wraps one comparison result with run metadata.
type Envelope struct {
	RunID       uuid.UUID                `json:"run_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Version     string                   `json:"version,omitempty"`
	Source      string                   `json:"source"`
	Target      string                   `json:"target"`
	Summary     Summary                  `json:"summary"`
	Result      *models.ComparisonResult `json:"result"`
}

// NewEnvelope stamps a result with a fresh run id. Source and target should already
// have credentials removed.
func NewEnvelope(source, target, version string, result *models.ComparisonResult) *Envelope {
	return &Envelope{
		RunID:       uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Version:     version,
		Source:      source,
		Target:      target,
		Summary:     Summarize(result),
		Result:      result,
	}
}

// Write renders env in the given format.
func Write(w io.Writer, format Format, env *Envelope) error {
	switch format {
	case FormatConsole:
		return WriteConsole(w, env)
	case FormatJSON:
		return WriteJSON(w, env)
	case FormatCSV:
		return WriteCSV(w, env)
	}
	return fmt.Errorf("%w: unknown output format %q", apperrors.ErrInvalidConfig, format)
}

// RowCounts is the row-level overview of a comparison.
type RowCounts struct {
	SourceRows       int `json:"source_rows"`
	TargetRows       int `json:"target_rows"`
	UniqueToSource   int `json:"unique_to_source1"`
	UniqueToTarget   int `json:"unique_to_source2"`
	Identical        int `json:"identical"`
	Differences      int `json:"differences"`
	DuplicateKeyRows int `json:"duplicate_key_rows"`
}

// ColumnStatistic is one compared column pair with its agreement as percentages.
// Percentages are empty when no rows matched.
type ColumnStatistic struct {
	Column               string `json:"column"`
	SourceColumn         string `json:"source_column"`
	TargetColumn         string `json:"target_column"`
	MatchedRows          int    `json:"matched_rows"`
	MatchPercentage      string `json:"match_percentage"`
	DifferencePercentage string `json:"difference_percentage"`
}

// Summary is the report-level digest of a result.
type Summary struct {
	RowCounts        RowCounts         `json:"row_counts"`
	ColumnStatistics []ColumnStatistic `json:"column_statistics"`
}

// Summarize builds the digest shown at the top of every report.
func Summarize(result *models.ComparisonResult) Summary {
	if result == nil {
		return Summary{ColumnStatistics: []ColumnStatistic{}}
	}
	s := result.Summary
	summary := Summary{
		RowCounts: RowCounts{
			SourceRows:       s.SourceRows,
			TargetRows:       s.TargetRows,
			UniqueToSource:   s.Removed,
			UniqueToTarget:   s.Added,
			Identical:        s.Identical,
			Differences:      s.Modified,
			DuplicateKeyRows: s.DuplicateKeys,
		},
		ColumnStatistics: make([]ColumnStatistic, 0, len(s.Columns)),
	}
	for _, c := range s.Columns {
		stat := ColumnStatistic{
			Column:       pairLabel(c.SourceColumn, c.TargetColumn),
			SourceColumn: c.SourceColumn,
			TargetColumn: c.TargetColumn,
			MatchedRows:  c.Matched,
		}
		if c.Matched > 0 {
			stat.MatchPercentage = percent(c.Rate)
			stat.DifferencePercentage = percent(1 - c.Rate)
		}
		summary.ColumnStatistics = append(summary.ColumnStatistics, stat)
	}
	return summary
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// pairLabel shows a single name when the column kept its name.
func pairLabel(source, target string) string {
	if source == target {
		return source
	}
	return source + " -> " + target
}

// formatKey renders key values as "7" or "(7, EU)".
func formatKey(values []models.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// formatValue keeps absent distinguishable from empty text.
func formatValue(v models.Value) string {
	switch {
	case v.IsAbsent():
		return "<null>"
	case v.Kind == models.ValueKindString && v.Str == "":
		return `""`
	}
	return v.String()
}
