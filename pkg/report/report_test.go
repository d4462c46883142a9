package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

func sampleResult() *models.ComparisonResult {
	return &models.ComparisonResult{
		Mapping: models.ColumnMapping{
			Pairs: []models.ColumnPair{
				{Source: "id", Target: "product_id", Score: 0.833, Origin: models.PairOriginAuto},
				{Source: "price", Target: "cost", Score: models.ForcedScore, Origin: models.PairOriginForced},
				{Source: "name", Target: "name", Score: 1, Origin: models.PairOriginAuto},
			},
			SourceOnly: []string{"sku"},
			TargetOnly: []string{},
		},
		Key: models.IdentifierKey{
			SourceColumns:    []string{"id"},
			TargetColumns:    []string{"product_id"},
			Origin:           models.KeyOriginAuto,
			SourceUniqueness: 1,
			TargetUniqueness: 1,
		},
		Rows: []models.RowClassification{
			{Status: models.RowStatusRemoved, Key: []models.Value{models.String("4")}, SourceRow: 3, TargetRow: models.NoRow},
			{Status: models.RowStatusAdded, Key: []models.Value{models.String("5")}, SourceRow: models.NoRow, TargetRow: 3},
			{Status: models.RowStatusIdentical, Key: []models.Value{models.String("1")}, SourceRow: 0, TargetRow: 0},
			{Status: models.RowStatusModified, Key: []models.Value{models.String("2")}, SourceRow: 1, TargetRow: 1,
				Diffs: []models.Diff{
					{SourceColumn: "price", TargetColumn: "cost", SourceValue: models.String("20"), TargetValue: models.String("25")},
					{SourceColumn: "name", TargetColumn: "name", SourceValue: models.String("Gizmo"), TargetValue: models.Absent()},
				}},
		},
		Summary: models.SummaryStats{
			SourceRows: 4, TargetRows: 4, Added: 1, Removed: 1, Identical: 1, Modified: 1,
			Columns: []models.ColumnStat{
				{SourceColumn: "name", TargetColumn: "name", Matched: 2, Agreed: 1, Rate: 0.5},
				{SourceColumn: "price", TargetColumn: "cost", Matched: 2, Agreed: 1, Rate: 0.5},
			},
		},
		Conditions: []models.Condition{
			{Kind: models.ConditionDuplicateKey, Severity: models.SeverityWarning, Side: models.SideTarget,
				Message: "1 duplicated key value(s)", Values: []string{"7 (x2)"}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"console", "JSON", " csv "} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	err = Write(&bytes.Buffer{}, Format("xml"), NewEnvelope("a", "b", "", sampleResult()))
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleResult())

	assert.Equal(t, RowCounts{SourceRows: 4, TargetRows: 4, UniqueToSource: 1, UniqueToTarget: 1, Identical: 1, Differences: 1}, summary.RowCounts)
	require.Len(t, summary.ColumnStatistics, 2)
	assert.Equal(t, "name", summary.ColumnStatistics[0].Column)
	assert.Equal(t, "price -> cost", summary.ColumnStatistics[1].Column)
	assert.Equal(t, "50.0%", summary.ColumnStatistics[1].MatchPercentage)
	assert.Equal(t, "50.0%", summary.ColumnStatistics[1].DifferencePercentage)
}

func TestSummarize_NoMatchedRows(t *testing.T) {
	result := &models.ComparisonResult{Summary: models.SummaryStats{
		Columns: []models.ColumnStat{{SourceColumn: "a", TargetColumn: "a"}},
	}}
	stat := Summarize(result).ColumnStatistics[0]
	assert.Empty(t, stat.MatchPercentage)
	assert.Empty(t, stat.DifferencePercentage)

	assert.NotNil(t, Summarize(nil).ColumnStatistics)
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope("a.csv", "b.csv", "1.2.3", sampleResult())
	assert.NotEqual(t, uuid.Nil, env.RunID)
	assert.False(t, env.GeneratedAt.IsZero())
	assert.Equal(t, 1, env.Summary.RowCounts.Differences)

	other := NewEnvelope("a.csv", "b.csv", "1.2.3", sampleResult())
	assert.NotEqual(t, env.RunID, other.RunID)
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatConsole, NewEnvelope("products_v1.csv", "products_v2.csv", "", sampleResult())))
	out := buf.String()

	for _, want := range []string{
		"=== Comparison Summary ===",
		"Source: products_v1.csv",
		"Key: id -> product_id (auto, uniqueness 1.000 / 1.000)",
		"  Unique to source 1: 1",
		"  Unique to source 2: 1",
		"  Rows with differences: 1",
		"  id -> product_id (0.83)",
		"  price -> cost (manual)",
		"  Source only: sku",
		"  price -> cost:\n    Match: 50.0%\n    Diff:  50.0%",
		"  Highest match: name (50.0%)",
		"  Lowest match:  price -> cost (50.0%)",
		"  [warning] duplicate_key: 1 duplicated key value(s)",
		"    values: 7 (x2)",
		"  removed  key=4",
		"  added    key=5",
		"  modified key=2",
		"    price -> cost: 20 => 25",
		"    name: Gizmo => <null>",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "key=1", "identical rows are not listed")
	assert.NotContains(t, out, "Target only", "empty target-only list is omitted")
	assert.NotContains(t, out, "duplicate keys")
}

func TestWriteConsole_TruncatesRows(t *testing.T) {
	result := sampleResult()
	result.Rows = nil
	for i := 0; i < MaxConsoleRows+5; i++ {
		result.Rows = append(result.Rows, models.RowClassification{
			Status: models.RowStatusAdded, Key: []models.Value{models.Number(float64(i))},
			SourceRow: models.NoRow, TargetRow: i,
		})
	}

	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, NewEnvelope("a", "b", "", result)))
	assert.Equal(t, MaxConsoleRows, strings.Count(buf.String(), "  added    key="))
	assert.Contains(t, buf.String(), "  ... and 5 more")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	env := NewEnvelope("a.csv", "b.csv", "1.2.3", sampleResult())
	require.NoError(t, WriteJSON(&buf, env))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, env.RunID.String(), decoded["run_id"])
	assert.Equal(t, "1.2.3", decoded["version"])

	rowCounts := decoded["summary"].(map[string]any)["row_counts"].(map[string]any)
	assert.EqualValues(t, 1, rowCounts["unique_to_source1"])
	assert.EqualValues(t, 1, rowCounts["differences"])

	rows := decoded["result"].(map[string]any)["rows"].([]any)
	require.Len(t, rows, 4)
	modified := rows[3].(map[string]any)
	assert.Equal(t, "modified", modified["status"])
	diff := modified["diffs"].([]any)[1].(map[string]any)
	assert.Nil(t, diff["target_value"], "absent renders as null")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, NewEnvelope("a", "b", "", sampleResult())))

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Row Counts"}, records[0])
	assert.Contains(t, records, []string{"unique_to_source1", "1"})
	assert.Contains(t, records, []string{"Column", "Match %", "Difference %"})
	assert.Contains(t, records, []string{"price -> cost", "50.0%", "50.0%"})
	assert.Contains(t, records, []string{"duplicate_key", "warning", "target", "1 duplicated key value(s)", "7 (x2)"})
	assert.Contains(t, records, []string{"removed", "4", "", "", "", ""})
	assert.Contains(t, records, []string{"modified", "2", "price", "cost", "20", "25"})
	assert.Contains(t, records, []string{"modified", "2", "name", "name", "Gizmo", "<null>"})

	for _, r := range records {
		assert.NotEqual(t, "identical", r[0])
	}
}

func TestFormatKey(t *testing.T) {
	assert.Equal(t, "7", formatKey([]models.Value{models.Number(7)}))
	assert.Equal(t, "(7, EU)", formatKey([]models.Value{models.Number(7), models.String("EU")}))
	assert.Equal(t, `(<null>, "")`, formatKey([]models.Value{models.Absent(), models.String("")}))
}
