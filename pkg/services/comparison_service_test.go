package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

func TestCompare_ScenarioA(t *testing.T) {
	source, target := scenarioA(t)
	svc := NewComparisonService(zap.NewNop())

	result, err := svc.Compare(context.Background(), source, target, DefaultOptions())
	require.NoError(t, err)

	for src, tgt := range map[string]string{"id": "product_id", "name": "product_name", "price": "cost"} {
		got, ok := result.Mapping.TargetFor(src)
		require.True(t, ok, src)
		assert.Equal(t, tgt, got)
	}
	assert.Equal(t, []string{"id"}, result.Key.SourceColumns)
	assert.Equal(t, []string{"product_id"}, result.Key.TargetColumns)
	assert.Equal(t, models.KeyOriginAuto, result.Key.Origin)

	// Key 4 exists only in the source table.
	assert.Equal(t, 1, result.Summary.Removed)
	assert.Equal(t, 0, result.Summary.Added)
	assert.Equal(t, 3, result.Summary.Identical)
	assert.Equal(t, 0, result.Summary.Modified)
	assert.Equal(t, []models.Value{models.String("4")}, result.Rows[0].Key)
	assert.Empty(t, result.Conditions)
}

func TestCompare_ScenarioB(t *testing.T) {
	source, target := scenarioB(t)
	svc := NewComparisonService(nil)

	result, err := svc.Compare(context.Background(), source, target, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"user_id"}, result.Key.SourceColumns)
	assert.Equal(t, []string{"id"}, result.Key.TargetColumns)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, models.RowStatusRemoved, result.Rows[0].Status)
	assert.Equal(t, "1", result.Rows[0].Key[0].String())
	assert.Equal(t, models.RowStatusAdded, result.Rows[1].Status)
	assert.Equal(t, "3", result.Rows[1].Key[0].String())
	assert.Equal(t, models.RowStatusModified, result.Rows[2].Status)
	assert.Equal(t, "2", result.Rows[2].Key[0].String())
	require.Len(t, result.Rows[2].Diffs, 1)
	assert.Equal(t, "city", result.Rows[2].Diffs[0].SourceColumn)
	assert.Equal(t, "Los Angeles", result.Rows[2].Diffs[0].SourceValue.String())
	assert.Equal(t, "San Francisco", result.Rows[2].Diffs[0].TargetValue.String())

	lowest, ok := result.Summary.Lowest()
	require.True(t, ok)
	assert.Equal(t, "city", lowest.SourceColumn)
	assert.Equal(t, 0.0, lowest.Rate)
}

func TestCompare_TextAgainstTypedValues(t *testing.T) {
	// A CSV export compared with the database table it came from.
	source := textTable(t, "products.csv", []string{"id", "name", "price", "active"},
		[]string{"1", "Laptop", "1200", "true"},
		[]string{"2", "Mouse", "25.0", "false"},
		[]string{"3", "Keyboard", "75.5", "true"},
	)
	target := valueTable(t, "products", []string{"id", "name", "price", "active"},
		models.Row{models.Number(1), models.String("Laptop"), models.Number(1200), models.Bool(true)},
		models.Row{models.Number(2), models.String("Mouse"), models.Number(25), models.Bool(false)},
		models.Row{models.Number(3), models.String("Keyboard"), models.Number(75.5), models.Bool(true)},
	)

	result, err := NewComparisonService(nil).Compare(context.Background(), source, target, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"id"}, result.Key.SourceColumns)
	assert.Equal(t, 0, result.Summary.Added)
	assert.Equal(t, 0, result.Summary.Removed)
	assert.Equal(t, 2, result.Summary.Identical)
	require.Equal(t, 1, result.Summary.Modified)

	// "25.0" is not coerced to 25.
	modified := result.Rows[len(result.Rows)-2]
	assert.Equal(t, models.RowStatusModified, modified.Status)
	require.Len(t, modified.Diffs, 1)
	assert.Equal(t, "price", modified.Diffs[0].SourceColumn)
	assert.Equal(t, models.String("25.0"), modified.Diffs[0].SourceValue)
	assert.Equal(t, models.Number(25), modified.Diffs[0].TargetValue)
}

func TestCompare_ScenarioC(t *testing.T) {
	source, target := scenarioC(t)
	svc := NewComparisonService(nil)

	tests := []struct {
		name            string
		caseInsensitive bool
		identical       int
		modified        int
	}{
		{"case insensitive", true, 3, 0},
		{"case sensitive", false, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Normalize.CaseInsensitive = tt.caseInsensitive

			result, err := svc.Compare(context.Background(), source, target, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.identical, result.Summary.Identical)
			assert.Equal(t, tt.modified, result.Summary.Modified)
			assert.Zero(t, result.Summary.Added+result.Summary.Removed)
		})
	}
}

func TestCompare_ManualOptions(t *testing.T) {
	source, target := scenarioA(t)
	svc := NewComparisonService(nil)

	opts := DefaultOptions()
	opts.ColumnMapping = []ManualPair{{Source: "price", Target: "cost"}}
	opts.IDColumns = []string{"name"}
	opts.ExcludeColumns = []string{"id"}

	result, err := svc.Compare(context.Background(), source, target, opts)
	require.NoError(t, err)

	pair, ok := result.Mapping.Pair("price")
	require.True(t, ok)
	assert.True(t, pair.IsForced())
	assert.Equal(t, models.KeyOriginManual, result.Key.Origin)
	assert.Equal(t, []string{"product_name"}, result.Key.TargetColumns)
	assert.Equal(t, 1.0, result.Key.SourceUniqueness)
	assert.Equal(t, 1.0, result.Key.TargetUniqueness)

	var compared []string
	for _, p := range result.Compared {
		compared = append(compared, p.Source)
	}
	assert.Equal(t, []string{"name", "price"}, compared)
}

func TestCompare_ManualKeyDuplicates(t *testing.T) {
	source := textTable(t, "s", []string{"id", "v"},
		[]string{"1", "a"},
		[]string{"1", "b"},
	)
	target := textTable(t, "t", []string{"id", "v"},
		[]string{"1", "a"},
		[]string{"", "c"},
	)
	opts := DefaultOptions()
	opts.IDColumns = []string{"id"}

	result, err := NewComparisonService(nil).Compare(context.Background(), source, target, opts)
	require.NoError(t, err)

	dups := result.ConditionsOf(models.ConditionDuplicateKey)
	require.Len(t, dups, 1)
	assert.Equal(t, models.SideSource, dups[0].Side)
	assert.Equal(t, []string{"1 (x2)"}, dups[0].Values)

	nulls := result.ConditionsOf(models.ConditionNullIdentifier)
	require.Len(t, nulls, 1)
	assert.Equal(t, models.SideTarget, nulls[0].Side)

	assert.Equal(t, 2, result.Summary.DuplicateKeys)
	assert.Len(t, result.Rows, 3)
}

func TestCompare_LowConfidenceKey(t *testing.T) {
	source := textTable(t, "s", []string{"color", "size"},
		[]string{"red", "L"},
		[]string{"red", "L"},
	)
	target := textTable(t, "t", []string{"color", "size"},
		[]string{"red", "L"},
	)

	result, err := NewComparisonService(nil).Compare(context.Background(), source, target, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, result.Key.LowConfidence)
	assert.Equal(t, models.KeyOriginFallback, result.Key.Origin)
	assert.Len(t, result.ConditionsOf(models.ConditionLowConfidenceIdentifier), 1)
	assert.Len(t, result.ConditionsOf(models.ConditionDuplicateKey), 1)
	assert.Equal(t, 1, result.Summary.Identical)
	assert.Equal(t, 1, result.Summary.Removed)
}

func TestCompare_NoComparableColumns(t *testing.T) {
	source := textTable(t, "s", []string{"alpha"}, []string{"1"})
	target := textTable(t, "t", []string{"omega"}, []string{"x"})

	result, err := NewComparisonService(nil).Compare(context.Background(), source, target, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, result.Key.IsEmpty())
	assert.Len(t, result.ConditionsOf(models.ConditionNoComparableColumns), 1)
	assert.Len(t, result.ConditionsOf(models.ConditionLowMappingCoverage), 1)
	assert.Equal(t, 1, result.Summary.Removed)
	assert.Equal(t, 1, result.Summary.Added)
}

func TestCompare_EmptyTable(t *testing.T) {
	source, _ := scenarioB(t)
	target := textTable(t, "t", []string{"id", "name", "city"})

	result, err := NewComparisonService(nil).Compare(context.Background(), source, target, DefaultOptions())
	require.NoError(t, err)

	empty := result.ConditionsOf(models.ConditionEmptyTable)
	require.Len(t, empty, 1)
	assert.Equal(t, models.SideTarget, empty[0].Side)
	assert.Equal(t, 2, result.Summary.Removed)
	assert.Zero(t, result.Summary.Matched())
}

func TestCompare_Sharded(t *testing.T) {
	source, target := scenarioB(t)
	svc := NewComparisonService(nil)

	single, err := svc.Compare(context.Background(), source, target, DefaultOptions())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Shards = 4
	sharded, err := svc.Compare(context.Background(), source, target, opts)
	require.NoError(t, err)

	assert.Equal(t, single.Rows, sharded.Rows)
	assert.Equal(t, single.Summary, sharded.Summary)
}

func TestCompare_ConfigurationErrors(t *testing.T) {
	source, target := scenarioA(t)
	svc := NewComparisonService(nil)

	tests := []struct {
		name     string
		mutate   func(*Options)
		sentinel error
		columns  []string
	}{
		{"unknown mapping source", func(o *Options) { o.ColumnMapping = []ManualPair{{Source: "sku", Target: "cost"}} }, apperrors.ErrUnknownColumn, []string{"sku"}},
		{"unknown mapping target", func(o *Options) { o.ColumnMapping = []ManualPair{{Source: "price", Target: "amount"}} }, apperrors.ErrUnknownColumn, []string{"amount"}},
		{"unknown id column", func(o *Options) { o.IDColumns = []string{"sku"} }, apperrors.ErrUnknownColumn, []string{"sku"}},
		{"unknown compare column", func(o *Options) { o.CompareColumns = []string{"weight"} }, apperrors.ErrUnknownColumn, []string{"weight"}},
		{"include and exclude overlap", func(o *Options) {
			o.CompareColumns = []string{"name", "price"}
			o.ExcludeColumns = []string{"price"}
		}, apperrors.ErrConflictingColumns, []string{"price"}},
		{"id column with no mapped target", func(o *Options) {
			o.ColumnMapping = []ManualPair{{Source: "price", Target: "product_id"}}
			o.IDColumns = []string{"id"}
		}, apperrors.ErrUnknownColumn, []string{"id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			result, err := svc.Compare(context.Background(), source, target, opts)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
			assert.True(t, errors.Is(err, tt.sentinel))

			var cfgErr *apperrors.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.columns, cfgErr.Columns)
		})
	}
}

func TestCompare_InvalidThresholds(t *testing.T) {
	source, target := scenarioA(t)
	opts := DefaultOptions()
	opts.Mapper.Threshold = 2

	_, err := NewComparisonService(nil).Compare(context.Background(), source, target, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
}
