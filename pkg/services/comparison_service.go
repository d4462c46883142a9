package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// Options configures a single comparison. Column names in IDColumns, CompareColumns
// and ExcludeColumns refer to source columns.
type Options struct {
	ColumnMapping  []ManualPair
	IDColumns      []string
	CompareColumns []string
	ExcludeColumns []string
	Normalize      NormalizeOptions

	Similarity SimilarityConfig
	Mapper     MapperConfig
	Identifier IdentifierConfig

	// Shards > 1 partitions the Row Comparator by key hash.
	Shards int
}

// DefaultOptions returns options with every heuristic at its default.
func DefaultOptions() Options {
	return Options{
		Similarity: DefaultSimilarityConfig(),
		Mapper:     DefaultMapperConfig(),
		Identifier: DefaultIdentifierConfig(),
		Shards:     1,
	}
}

// Validate checks the heuristic thresholds.
func (o Options) Validate() error {
	for _, v := range []interface{ Validate() error }{o.Similarity, o.Mapper, o.Identifier} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s", apperrors.ErrInvalidConfig, err.Error())
		}
	}
	if o.Shards < 0 {
		return fmt.Errorf("%w: shards must not be negative", apperrors.ErrInvalidConfig)
	}
	return nil
}

// ComparisonService runs the matching engine: Column Mapper, Identifier Detector,
// Row Comparator, Comparison Summarizer.
type ComparisonService interface {
	Compare(ctx context.Context, source, target *models.Table, opts Options) (*models.ComparisonResult, error)
}

type comparisonService struct {
	logger *zap.Logger
}

var _ ComparisonService = (*comparisonService)(nil)

// NewComparisonService creates a new comparison service.
func NewComparisonService(logger *zap.Logger) ComparisonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &comparisonService{logger: logger.Named("comparison")}
}

// Compare returns a configuration error before doing any work if opts names a missing
// column or conflicting columns. Everything else degrades into Conditions on the result.
func (s *comparisonService) Compare(ctx context.Context, source, target *models.Table, opts Options) (*models.ComparisonResult, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := validateColumns(source, target, opts); err != nil {
		return nil, err
	}

	var conditions []models.Condition
	conditions = append(conditions, emptyTableConditions(source, target)...)

	mapper := NewColumnMapper(opts.Mapper, nil, s.logger)
	mapping, mapConditions, err := mapper.MapColumns(
		SampleTable(source, opts.Similarity.SampleSize),
		SampleTable(target, opts.Similarity.SampleSize),
		opts.ColumnMapping,
	)
	if err != nil {
		return nil, err
	}
	conditions = append(conditions, mapConditions...)

	detector := NewIdentifierDetector(opts.Identifier, s.logger)
	key, keyConditions, err := s.resolveKey(detector, source, target, mapping, opts)
	if err != nil {
		return nil, err
	}
	conditions = append(conditions, keyConditions...)

	pairs, err := ResolveComparePairs(mapping, opts.CompareColumns, opts.ExcludeColumns)
	if err != nil {
		return nil, err
	}

	plan := ComparePlan{Key: key, Pairs: pairs, Normalize: opts.Normalize}
	var rows []models.RowClassification
	if opts.Shards > 1 {
		rows, err = CompareRowsSharded(ctx, source, target, plan, opts.Shards)
	} else {
		rows, err = CompareRows(source, target, plan)
	}
	if err != nil {
		return nil, err
	}

	summary := Summarize(rows, pairs)
	if conditions == nil {
		conditions = []models.Condition{}
	}

	s.logger.Info("Comparison completed",
		zap.String("source", source.Name),
		zap.String("target", target.Name),
		zap.Int("mapped_pairs", len(mapping.Pairs)),
		zap.Strings("key", key.SourceColumns),
		zap.Int("added", summary.Added),
		zap.Int("removed", summary.Removed),
		zap.Int("identical", summary.Identical),
		zap.Int("modified", summary.Modified),
		zap.Int("conditions", len(conditions)),
		zap.Duration("elapsed", time.Since(start)))

	return &models.ComparisonResult{
		Mapping:    *mapping,
		Key:        key,
		Compared:   pairs,
		Rows:       rows,
		Summary:    summary,
		Conditions: conditions,
	}, nil
}

// resolveKey validates a manual key or detects one among the mapped source columns,
// then resolves it to target columns through the mapping.
func (s *comparisonService) resolveKey(detector *IdentifierDetector, source, target *models.Table, mapping *models.ColumnMapping, opts Options) (models.IdentifierKey, []models.Condition, error) {
	var key models.IdentifierKey
	var conditions []models.Condition

	if len(opts.IDColumns) > 0 {
		key.SourceColumns = append([]string{}, opts.IDColumns...)
		key.Origin = models.KeyOriginManual
	} else {
		if len(mapping.Pairs) == 0 {
			s.logger.Warn("No mapped columns; every row is unmatched")
			return models.IdentifierKey{Origin: models.KeyOriginFallback, LowConfidence: true}, []models.Condition{{
				Kind:     models.ConditionNoComparableColumns,
				Severity: models.SeverityWarning,
				Side:     models.SideBoth,
				Message:  "no source column could be mapped to a target column; rows cannot be matched",
			}}, nil
		}
		detected := detector.DetectIdentifier(source, mapping.SourceColumns(), opts.Normalize)
		key.SourceColumns = detected.Columns
		key.Origin = detected.Origin
		key.LowConfidence = detected.LowConfidence
		if detected.LowConfidence {
			conditions = append(conditions, models.Condition{
				Kind:     models.ConditionLowConfidenceIdentifier,
				Severity: models.SeverityWarning,
				Side:     models.SideSource,
				Message: fmt.Sprintf("no column combination reached %.0f%% uniqueness; using all %d mapped columns as the key",
					opts.Identifier.UniquenessThreshold*100, len(detected.Columns)),
				Columns: detected.Columns,
			})
		}
	}

	var unmapped []string
	for _, c := range key.SourceColumns {
		t, ok := mapping.TargetFor(c)
		if !ok {
			unmapped = append(unmapped, c)
			continue
		}
		key.TargetColumns = append(key.TargetColumns, t)
	}
	if len(unmapped) > 0 {
		return models.IdentifierKey{}, nil, apperrors.UnknownColumns("id_columns (no mapped target column)", unmapped...)
	}

	var err error
	var sideConditions []models.Condition
	if key.SourceUniqueness, sideConditions, err = detector.ValidateIdentifier(source, key.SourceColumns, models.SideSource, opts.Normalize); err != nil {
		return models.IdentifierKey{}, nil, err
	}
	conditions = append(conditions, sideConditions...)
	if key.TargetUniqueness, sideConditions, err = detector.ValidateIdentifier(target, key.TargetColumns, models.SideTarget, opts.Normalize); err != nil {
		return models.IdentifierKey{}, nil, err
	}
	conditions = append(conditions, sideConditions...)

	s.logger.Debug("Identifier resolved",
		zap.String("origin", string(key.Origin)),
		zap.Strings("source_columns", key.SourceColumns),
		zap.Strings("target_columns", key.TargetColumns),
		zap.Float64("source_uniqueness", key.SourceUniqueness),
		zap.Float64("target_uniqueness", key.TargetUniqueness))
	return key, conditions, nil
}

// validateColumns rejects options naming columns absent from their table, and
// conflicting column selections.
func validateColumns(source, target *models.Table, opts Options) error {
	sourceIdx := make(map[string]int, len(source.Columns))
	for i, c := range source.Columns {
		sourceIdx[c.Name] = i
	}
	targetIdx := make(map[string]int, len(target.Columns))
	for i, c := range target.Columns {
		targetIdx[c.Name] = i
	}
	if err := validateOverrides(opts.ColumnMapping, sourceIdx, targetIdx); err != nil {
		return err
	}

	lists := []struct {
		field string
		cols  []string
	}{
		{"id_columns", opts.IDColumns},
		{"compare_columns", opts.CompareColumns},
		{"exclude_columns", opts.ExcludeColumns},
	}
	for _, l := range lists {
		var unknown []string
		for _, c := range l.cols {
			if _, ok := sourceIdx[c]; !ok {
				unknown = append(unknown, c)
			}
		}
		if len(unknown) > 0 {
			return apperrors.UnknownColumns(l.field, unknown...)
		}
	}
	if dup := duplicates(opts.IDColumns); len(dup) > 0 {
		return apperrors.ConflictingColumns("id_columns listed more than once", dup...)
	}
	if conflicts := intersect(opts.CompareColumns, opts.ExcludeColumns); len(conflicts) > 0 {
		return apperrors.ConflictingColumns("compare_columns and exclude_columns", conflicts...)
	}
	return nil
}

func duplicates(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if seen[v] {
			out = append(out, v)
		}
		seen[v] = true
	}
	return out
}

func emptyTableConditions(source, target *models.Table) []models.Condition {
	var side models.Side
	var message string
	switch {
	case source.RowCount() == 0 && target.RowCount() == 0:
		side, message = models.SideBoth, "both tables have no rows"
	case source.RowCount() == 0:
		side, message = models.SideSource, fmt.Sprintf("source table %q has no rows; every target row is added", source.Name)
	case target.RowCount() == 0:
		side, message = models.SideTarget, fmt.Sprintf("target table %q has no rows; every source row is removed", target.Name)
	default:
		return nil
	}
	return []models.Condition{{
		Kind:     models.ConditionEmptyTable,
		Severity: models.SeverityInfo,
		Side:     side,
		Message:  message,
	}}
}
