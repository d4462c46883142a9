package services

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

const (
	// DefaultMappingThreshold is the minimum similarity for an automatic pair.
	// Permissive enough to accept plausible renames such as price -> cost when the
	// values agree.
	DefaultMappingThreshold = 0.30

	// DefaultMinCoverage is the mapped share of either side's columns below which a
	// low_mapping_coverage condition is raised.
	DefaultMinCoverage = 0.50
)

// ManualPair is a user-supplied source→target correspondence.
type ManualPair struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// MapperConfig holds Column Mapper thresholds.
type MapperConfig struct {
	Threshold   float64
	MinCoverage float64
}

// DefaultMapperConfig returns the default mapper thresholds.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Threshold:   DefaultMappingThreshold,
		MinCoverage: DefaultMinCoverage,
	}
}

// Validate checks if the configuration is valid.
func (c MapperConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.New("mapping threshold must be between 0 and 1")
	}
	if c.MinCoverage < 0 || c.MinCoverage > 1 {
		return errors.New("minimum mapping coverage must be between 0 and 1")
	}
	return nil
}

// ColumnMapper builds a one-to-one correspondence between source and target columns.
type ColumnMapper struct {
	config     MapperConfig
	similarity SimilarityFunc
	logger     *zap.Logger
}

// NewColumnMapper creates a mapper. A nil similarity uses ColumnSimilarity.
func NewColumnMapper(config MapperConfig, similarity SimilarityFunc, logger *zap.Logger) *ColumnMapper {
	if similarity == nil {
		similarity = ColumnSimilarity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColumnMapper{
		config:     config,
		similarity: similarity,
		logger:     logger.Named("column-mapper"),
	}
}

// scoredPair is one cell of the similarity matrix.
type scoredPair struct {
	source, target int
	score          float64
}

// MapColumns applies manual overrides first, then greedily accepts the highest-scoring
// remaining pairs until none reaches the threshold. Ties break by source declaration
// order, then target declaration order. Only invalid overrides return an error; an
// empty or partial mapping is a valid result, flagged by a coverage condition.
func (m *ColumnMapper) MapColumns(source, target []ColumnSample, overrides []ManualPair) (*models.ColumnMapping, []models.Condition, error) {
	sourceIdx := indexSamples(source)
	targetIdx := indexSamples(target)

	if err := validateOverrides(overrides, sourceIdx, targetIdx); err != nil {
		return nil, nil, err
	}

	sourceUsed := make([]bool, len(source))
	targetUsed := make([]bool, len(target))
	pairBySource := make(map[int]models.ColumnPair)

	for _, o := range overrides {
		si, ti := sourceIdx[o.Source], targetIdx[o.Target]
		sourceUsed[si], targetUsed[ti] = true, true
		pairBySource[si] = models.ColumnPair{
			Source: o.Source,
			Target: o.Target,
			Score:  models.ForcedScore,
			Origin: models.PairOriginForced,
		}
	}

	candidates := make([]scoredPair, 0, len(source)*len(target))
	for si := range source {
		if sourceUsed[si] {
			continue
		}
		for ti := range target {
			if targetUsed[ti] {
				continue
			}
			candidates = append(candidates, scoredPair{si, ti, m.similarity(source[si], target[ti])})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.source != b.source {
			return a.source < b.source
		}
		return a.target < b.target
	})

	for _, c := range candidates {
		if c.score < m.config.Threshold {
			break
		}
		if sourceUsed[c.source] || targetUsed[c.target] {
			continue
		}
		sourceUsed[c.source], targetUsed[c.target] = true, true
		pairBySource[c.source] = models.ColumnPair{
			Source: source[c.source].Name,
			Target: target[c.target].Name,
			Score:  c.score,
			Origin: models.PairOriginAuto,
		}
	}

	mapping := &models.ColumnMapping{
		Pairs:      make([]models.ColumnPair, 0, len(pairBySource)),
		SourceOnly: []string{},
		TargetOnly: []string{},
	}
	for si, s := range source {
		if p, ok := pairBySource[si]; ok {
			mapping.Pairs = append(mapping.Pairs, p)
		} else {
			mapping.SourceOnly = append(mapping.SourceOnly, s.Name)
		}
	}
	for ti, t := range target {
		if !targetUsed[ti] {
			mapping.TargetOnly = append(mapping.TargetOnly, t.Name)
		}
	}

	m.logger.Debug("Column mapping completed",
		zap.Int("pairs", len(mapping.Pairs)),
		zap.Int("forced", len(overrides)),
		zap.Int("candidates_scored", len(candidates)),
		zap.Strings("source_only", mapping.SourceOnly),
		zap.Strings("target_only", mapping.TargetOnly))

	var conditions []models.Condition
	if cond, ok := m.coverageCondition(mapping, len(source), len(target)); ok {
		m.logger.Warn("Low column mapping coverage",
			zap.String("detail", cond.Message),
			zap.Strings("unmapped", cond.Columns))
		conditions = append(conditions, cond)
	}
	return mapping, conditions, nil
}

// coverageCondition reports when mapped pairs cover less than MinCoverage of either side.
func (m *ColumnMapper) coverageCondition(mapping *models.ColumnMapping, nSource, nTarget int) (models.Condition, bool) {
	if nSource == 0 && nTarget == 0 {
		return models.Condition{}, false
	}
	coverage := func(n int) float64 {
		if n == 0 {
			return 0
		}
		return float64(len(mapping.Pairs)) / float64(n)
	}
	sourceCov, targetCov := coverage(nSource), coverage(nTarget)

	var side models.Side
	switch {
	case sourceCov < m.config.MinCoverage && targetCov < m.config.MinCoverage:
		side = models.SideBoth
	case sourceCov < m.config.MinCoverage:
		side = models.SideSource
	case targetCov < m.config.MinCoverage:
		side = models.SideTarget
	default:
		return models.Condition{}, false
	}

	unmapped := append(append([]string{}, mapping.SourceOnly...), mapping.TargetOnly...)
	return models.Condition{
		Kind:     models.ConditionLowMappingCoverage,
		Severity: models.SeverityWarning,
		Side:     side,
		Message: fmt.Sprintf("mapped %d column pair(s): %.0f%% of source columns, %.0f%% of target columns (minimum %.0f%%)",
			len(mapping.Pairs), sourceCov*100, targetCov*100, m.config.MinCoverage*100),
		Columns: unmapped,
	}, true
}

func indexSamples(samples []ColumnSample) map[string]int {
	idx := make(map[string]int, len(samples))
	for i, s := range samples {
		idx[s.Name] = i
	}
	return idx
}

// validateOverrides rejects overrides naming unknown columns or reusing a column.
func validateOverrides(overrides []ManualPair, sourceIdx, targetIdx map[string]int) error {
	var unknownSource, unknownTarget, reused []string
	seenSource := make(map[string]bool)
	seenTarget := make(map[string]bool)
	for _, o := range overrides {
		if _, ok := sourceIdx[o.Source]; !ok {
			unknownSource = append(unknownSource, o.Source)
		}
		if _, ok := targetIdx[o.Target]; !ok {
			unknownTarget = append(unknownTarget, o.Target)
		}
		if seenSource[o.Source] {
			reused = append(reused, o.Source)
		}
		if seenTarget[o.Target] {
			reused = append(reused, o.Target)
		}
		seenSource[o.Source], seenTarget[o.Target] = true, true
	}
	switch {
	case len(unknownSource) > 0:
		return apperrors.UnknownColumns("column_mapping source", unknownSource...)
	case len(unknownTarget) > 0:
		return apperrors.UnknownColumns("column_mapping target", unknownTarget...)
	case len(reused) > 0:
		return apperrors.ConflictingColumns("column_mapping must be one-to-one", reused...)
	}
	return nil
}
