package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

const (
	// DefaultUniquenessThreshold is the minimum distinct/row ratio for a usable key.
	DefaultUniquenessThreshold = 0.95

	// DefaultMaxKeyColumns bounds the size of multi-column key combinations.
	DefaultMaxKeyColumns = 3

	// DefaultMaxCombinations caps how many combinations of one size are evaluated.
	DefaultMaxCombinations = 10000

	// MaxReportedDuplicates caps the offending values listed on a duplicate_key condition.
	MaxReportedDuplicates = 20
)

// identifierNames are column names that score highest as keys.
var identifierNames = map[string]bool{
	"id":   true,
	"key":  true,
	"uuid": true,
}

// IdentifierConfig holds Identifier Detector thresholds.
type IdentifierConfig struct {
	UniquenessThreshold float64
	MaxKeyColumns       int
	MaxCombinations     int
}

// DefaultIdentifierConfig returns the default detector thresholds.
func DefaultIdentifierConfig() IdentifierConfig {
	return IdentifierConfig{
		UniquenessThreshold: DefaultUniquenessThreshold,
		MaxKeyColumns:       DefaultMaxKeyColumns,
		MaxCombinations:     DefaultMaxCombinations,
	}
}

// Validate checks if the configuration is valid.
func (c IdentifierConfig) Validate() error {
	if c.UniquenessThreshold <= 0 || c.UniquenessThreshold > 1 {
		return errors.New("uniqueness threshold must be in (0, 1]")
	}
	if c.MaxKeyColumns < 1 {
		return errors.New("max key columns must be at least 1")
	}
	if c.MaxCombinations < 1 {
		return errors.New("max combinations must be at least 1")
	}
	return nil
}

// KeyDetection is the detector's choice of key columns for one table.
type KeyDetection struct {
	Columns       []string
	Origin        models.KeyOrigin
	Uniqueness    float64
	LowConfidence bool
}

// IdentifierDetector selects or validates the columns that key each row.
type IdentifierDetector struct {
	config IdentifierConfig
	logger *zap.Logger
}

// NewIdentifierDetector creates a detector.
func NewIdentifierDetector(config IdentifierConfig, logger *zap.Logger) *IdentifierDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentifierDetector{
		config: config,
		logger: logger.Named("identifier-detector"),
	}
}

// keyCandidate is a single column ranked for key selection.
type keyCandidate struct {
	name       string
	position   int
	order      int
	nameScore  float64
	uniqueness float64
}

// DetectIdentifier picks key columns for table from candidates (all columns when nil).
//
// Single columns are ranked by name heuristic, then uniqueness ratio, then declaration
// order; the first whose uniqueness meets the threshold wins. Otherwise the smallest
// combination (2..MaxKeyColumns) with the best uniqueness that meets the threshold is
// used. If none does, every candidate column is used jointly and the result is flagged
// low-confidence.
func (d *IdentifierDetector) DetectIdentifier(table *models.Table, candidates []string, opts NormalizeOptions) KeyDetection {
	if candidates == nil {
		candidates = table.ColumnNames()
	}
	positions := make([]int, 0, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if p, ok := table.ColumnIndex(c); ok {
			positions = append(positions, p)
			names = append(names, c)
		}
	}
	if len(positions) == 0 {
		return KeyDetection{Origin: models.KeyOriginFallback, LowConfidence: true}
	}

	ranked := make([]keyCandidate, 0, len(positions))
	for i, p := range positions {
		// Boolean-looking columns are skipped unless named like a key (an id of 0 and 1).
		kind := table.Columns[p].Kind
		nameScore := IdentifierNameScore(names[i])
		if kind == models.ColumnKindNullHeavy || (kind == models.ColumnKindBoolean && nameScore == 0) {
			continue
		}
		ranked = append(ranked, keyCandidate{
			name:       names[i],
			position:   p,
			order:      i,
			nameScore:  nameScore,
			uniqueness: Uniqueness(table, []int{p}, opts),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.nameScore != b.nameScore {
			return a.nameScore > b.nameScore
		}
		if a.uniqueness != b.uniqueness {
			return a.uniqueness > b.uniqueness
		}
		return a.order < b.order
	})
	for _, c := range ranked {
		if c.uniqueness >= d.config.UniquenessThreshold {
			d.logger.Debug("Selected single-column identifier",
				zap.String("table", table.Name),
				zap.String("column", c.name),
				zap.Float64("name_score", c.nameScore),
				zap.Float64("uniqueness", c.uniqueness))
			return KeyDetection{
				Columns:    []string{c.name},
				Origin:     models.KeyOriginAuto,
				Uniqueness: c.uniqueness,
			}
		}
	}

	maxSize := min(d.config.MaxKeyColumns, len(positions))
	for size := 2; size <= maxSize; size++ {
		combo, uniqueness, ok := d.bestCombination(table, positions, size, opts)
		if !ok {
			continue
		}
		cols := make([]string, len(combo))
		for i, idx := range combo {
			cols[i] = names[idx]
		}
		d.logger.Debug("Selected composite identifier",
			zap.String("table", table.Name),
			zap.Strings("columns", cols),
			zap.Float64("uniqueness", uniqueness))
		return KeyDetection{Columns: cols, Origin: models.KeyOriginAuto, Uniqueness: uniqueness}
	}

	uniqueness := Uniqueness(table, positions, opts)
	d.logger.Warn("No column combination is unique enough; using all candidate columns",
		zap.String("table", table.Name),
		zap.Int("columns", len(names)),
		zap.Float64("uniqueness", uniqueness),
		zap.Float64("threshold", d.config.UniquenessThreshold))
	return KeyDetection{
		Columns:       append([]string{}, names...),
		Origin:        models.KeyOriginFallback,
		Uniqueness:    uniqueness,
		LowConfidence: true,
	}
}

// bestCombination returns the indexes (into positions) of the size-k combination with
// the highest uniqueness meeting the threshold; ties keep the lexicographically first.
func (d *IdentifierDetector) bestCombination(table *models.Table, positions []int, k int, opts NormalizeOptions) ([]int, float64, bool) {
	var best []int
	bestScore := -1.0
	evaluated := 0

	combo := make([]int, k)
	for i := range combo {
		combo[i] = i
	}
	cols := make([]int, k)
	for {
		for i, idx := range combo {
			cols[i] = positions[idx]
		}
		score := Uniqueness(table, cols, opts)
		if score >= d.config.UniquenessThreshold && score > bestScore {
			best = append(best[:0], combo...)
			bestScore = score
			if score == 1 {
				break
			}
		}
		evaluated++
		if evaluated >= d.config.MaxCombinations || !nextCombination(combo, len(positions)) {
			break
		}
	}
	return best, bestScore, best != nil
}

// nextCombination advances combo to the next k-combination of [0,n) in lexicographic order.
func nextCombination(combo []int, n int) bool {
	k := len(combo)
	i := k - 1
	for i >= 0 && combo[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	combo[i]++
	for j := i + 1; j < k; j++ {
		combo[j] = combo[j-1] + 1
	}
	return true
}

// IdentifierNameScore rates how much a column name looks like a key:
// 1.0 for id/key/uuid, 0.8 when the last name token is one of those (order_id,
// customerId), 0.5 when the compacted name merely ends with one (userid), else 0.
func IdentifierNameScore(name string) float64 {
	compact := compactName(name)
	if identifierNames[compact] {
		return 1
	}
	tokens := NameTokens(name)
	if len(tokens) > 1 && identifierNames[tokens[len(tokens)-1]] {
		return 0.8
	}
	for suffix := range identifierNames {
		if strings.HasSuffix(compact, suffix) {
			return 0.5
		}
	}
	return 0
}

// Uniqueness is distinct normalized key values divided by row count.
// An empty table is trivially unique.
func Uniqueness(table *models.Table, positions []int, opts NormalizeOptions) float64 {
	if table.RowCount() == 0 {
		return 1
	}
	seen := make(map[string]struct{}, table.RowCount())
	for _, row := range table.Rows {
		seen[compositeKey(row, positions, opts)] = struct{}{}
	}
	return float64(len(seen)) / float64(table.RowCount())
}

// duplicateGroup is one key value occurring more than once.
type duplicateGroup struct {
	display string
	count   int
}

// findDuplicates lists duplicated key values in first-seen order.
func findDuplicates(table *models.Table, positions []int, opts NormalizeOptions) []duplicateGroup {
	counts := make(map[string]int, table.RowCount())
	first := make(map[string]models.Row)
	var order []string
	for _, row := range table.Rows {
		k := compositeKey(row, positions, opts)
		if counts[k] == 0 {
			order = append(order, k)
			first[k] = row
		}
		counts[k]++
	}
	var groups []duplicateGroup
	for _, k := range order {
		if counts[k] > 1 {
			groups = append(groups, duplicateGroup{display: displayKey(first[k], positions), count: counts[k]})
		}
	}
	return groups
}

// displayKey renders the raw key cells of a row, e.g. "42" or "(42, EU)".
func displayKey(row models.Row, positions []int) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		if row[p].IsAbsent() {
			parts[i] = "<null>"
		} else {
			parts[i] = row[p].String()
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ValidateIdentifier checks key columns on one table. Unknown columns are a
// configuration error; duplicated or null key values become conditions.
// It returns the key's uniqueness ratio on this table.
func (d *IdentifierDetector) ValidateIdentifier(table *models.Table, columns []string, side models.Side, opts NormalizeOptions) (float64, []models.Condition, error) {
	positions := make([]int, 0, len(columns))
	var unknown []string
	for _, c := range columns {
		p, ok := table.ColumnIndex(c)
		if !ok {
			unknown = append(unknown, c)
			continue
		}
		positions = append(positions, p)
	}
	if len(unknown) > 0 {
		return 0, nil, apperrors.UnknownColumns(fmt.Sprintf("id_columns (%s)", side), unknown...)
	}
	if len(positions) == 0 {
		return 0, nil, nil
	}

	uniqueness := Uniqueness(table, positions, opts)
	var conditions []models.Condition

	if uniqueness < 1 {
		groups := findDuplicates(table, positions, opts)
		values := make([]string, 0, min(len(groups), MaxReportedDuplicates))
		rows := 0
		for i, g := range groups {
			rows += g.count
			if i < MaxReportedDuplicates {
				values = append(values, fmt.Sprintf("%s (x%d)", g.display, g.count))
			}
		}
		cond := models.Condition{
			Kind:     models.ConditionDuplicateKey,
			Severity: models.SeverityWarning,
			Side:     side,
			Message: fmt.Sprintf("%d duplicated key value(s) across %d %s rows (uniqueness %.3f, threshold %.2f)",
				len(groups), rows, side, uniqueness, d.config.UniquenessThreshold),
			Columns: append([]string{}, columns...),
			Values:  values,
		}
		d.logger.Warn("Duplicate identifier values",
			zap.String("side", string(side)),
			zap.Strings("columns", columns),
			zap.Int("duplicated_values", len(groups)),
			zap.Float64("uniqueness", uniqueness))
		conditions = append(conditions, cond)
	}

	var nullCols []string
	for i, p := range positions {
		for _, row := range table.Rows {
			v := row[p]
			if v.IsAbsent() || (v.Kind == models.ValueKindString && strings.TrimSpace(v.Str) == "") {
				nullCols = append(nullCols, columns[i])
				break
			}
		}
	}
	if len(nullCols) > 0 {
		conditions = append(conditions, models.Condition{
			Kind:     models.ConditionNullIdentifier,
			Severity: models.SeverityWarning,
			Side:     side,
			Message:  fmt.Sprintf("identifier column(s) contain null or blank values in %s table", side),
			Columns:  nullCols,
		})
		d.logger.Warn("Identifier contains null values",
			zap.String("side", string(side)),
			zap.Strings("columns", nullCols))
	}

	return uniqueness, conditions, nil
}
