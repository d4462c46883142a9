package services

import (
	"fmt"
	"sort"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// ComparePlan is everything the Row Comparator needs besides the two tables. It is
// computed once per comparison and shared read-only by every shard.
type ComparePlan struct {
	Key       models.IdentifierKey
	Pairs     []models.ColumnPair
	Normalize NormalizeOptions
}

// ResolveComparePairs restricts the mapped pairs to those that should be compared.
// include and exclude name source columns; a non-empty include is an allow-list.
// Naming a column that is not mapped, or naming one in both lists, is a configuration error.
func ResolveComparePairs(mapping *models.ColumnMapping, include, exclude []string) ([]models.ColumnPair, error) {
	if conflicts := intersect(include, exclude); len(conflicts) > 0 {
		return nil, apperrors.ConflictingColumns("compare_columns and exclude_columns", conflicts...)
	}
	lists := []struct {
		field string
		cols  []string
	}{
		{"compare_columns", include},
		{"exclude_columns", exclude},
	}
	for _, l := range lists {
		var unmapped []string
		for _, c := range l.cols {
			if _, ok := mapping.TargetFor(c); !ok {
				unmapped = append(unmapped, c)
			}
		}
		if len(unmapped) > 0 {
			return nil, apperrors.UnknownColumns(l.field+" (no mapped target column)", unmapped...)
		}
	}

	allowed := toSet(include)
	denied := toSet(exclude)
	pairs := make([]models.ColumnPair, 0, len(mapping.Pairs))
	for _, p := range mapping.Pairs {
		if len(allowed) > 0 && !allowed[p.Source] {
			continue
		}
		if denied[p.Source] {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// rowComparator holds column positions resolved from a ComparePlan.
type rowComparator struct {
	source, target *models.Table
	plan           ComparePlan
	sourceKey      []int
	targetKey      []int
	sourcePairs    []int
	targetPairs    []int
}

func newRowComparator(source, target *models.Table, plan ComparePlan) (*rowComparator, error) {
	if len(plan.Key.SourceColumns) != len(plan.Key.TargetColumns) {
		return nil, fmt.Errorf("%w: identifier has %d source and %d target columns",
			apperrors.ErrInvalidConfig, len(plan.Key.SourceColumns), len(plan.Key.TargetColumns))
	}
	c := &rowComparator{source: source, target: target, plan: plan}
	var err error
	if c.sourceKey, err = positionsOf(source, plan.Key.SourceColumns, "id_columns (source)"); err != nil {
		return nil, err
	}
	if c.targetKey, err = positionsOf(target, plan.Key.TargetColumns, "id_columns (target)"); err != nil {
		return nil, err
	}
	for _, p := range plan.Pairs {
		sp, ok := source.ColumnIndex(p.Source)
		if !ok {
			return nil, apperrors.UnknownColumns("compare pair (source)", p.Source)
		}
		tp, ok := target.ColumnIndex(p.Target)
		if !ok {
			return nil, apperrors.UnknownColumns("compare pair (target)", p.Target)
		}
		c.sourcePairs = append(c.sourcePairs, sp)
		c.targetPairs = append(c.targetPairs, tp)
	}
	return c, nil
}

func positionsOf(table *models.Table, columns []string, field string) ([]int, error) {
	positions := make([]int, len(columns))
	var unknown []string
	for i, c := range columns {
		p, ok := table.ColumnIndex(c)
		if !ok {
			unknown = append(unknown, c)
			continue
		}
		positions[i] = p
	}
	if len(unknown) > 0 {
		return nil, apperrors.UnknownColumns(field, unknown...)
	}
	return positions, nil
}

// rowKeys returns the normalized composite key of every row in table.
func rowKeys(table *models.Table, positions []int, opts NormalizeOptions) []string {
	keys := make([]string, len(table.Rows))
	for i, row := range table.Rows {
		keys[i] = compositeKey(row, positions, opts)
	}
	return keys
}

// CompareRows classifies every row of both tables by identifier key.
//
// A key present only in source is Removed, only in target is Added. When a key occurs
// several times, the n-th source occurrence pairs with the n-th target occurrence and
// every classification for that key is marked DuplicateKey, so each input row appears
// exactly once. Output is ordered Removed (source order), Added (target order), then
// Matched (source order). An empty key matches nothing.
func CompareRows(source, target *models.Table, plan ComparePlan) ([]models.RowClassification, error) {
	c, err := newRowComparator(source, target, plan)
	if err != nil {
		return nil, err
	}
	srcKeys, tgtKeys := c.keys()
	return c.compare(srcKeys, tgtKeys, allRows(source.RowCount()), allRows(target.RowCount())), nil
}

func (c *rowComparator) keys() ([]string, []string) {
	return rowKeys(c.source, c.sourceKey, c.plan.Normalize), rowKeys(c.target, c.targetKey, c.plan.Normalize)
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// compare classifies the given subsets of rows. Every occurrence of a key must be in
// the subsets for occurrence pairing to be correct.
func (c *rowComparator) compare(srcKeys, tgtKeys []string, srcRows, tgtRows []int) []models.RowClassification {
	if c.plan.Key.IsEmpty() {
		out := make([]models.RowClassification, 0, len(srcRows)+len(tgtRows))
		for _, i := range srcRows {
			out = append(out, c.unmatched(models.RowStatusRemoved, i, 0, false))
		}
		for _, j := range tgtRows {
			out = append(out, c.unmatched(models.RowStatusAdded, j, 0, false))
		}
		return out
	}

	sourceByKey := make(map[string][]int, len(srcRows))
	for _, i := range srcRows {
		sourceByKey[srcKeys[i]] = append(sourceByKey[srcKeys[i]], i)
	}
	targetByKey := make(map[string][]int, len(tgtRows))
	for _, j := range tgtRows {
		targetByKey[tgtKeys[j]] = append(targetByKey[tgtKeys[j]], j)
	}
	duplicate := func(k string) bool {
		return len(sourceByKey[k]) > 1 || len(targetByKey[k]) > 1
	}

	var removed, added, matched []models.RowClassification
	srcSeen := make(map[string]int, len(sourceByKey))
	for _, i := range srcRows {
		k := srcKeys[i]
		n := srcSeen[k]
		srcSeen[k]++
		if targets := targetByKey[k]; n < len(targets) {
			matched = append(matched, c.matched(i, targets[n], n, duplicate(k)))
		} else {
			removed = append(removed, c.unmatched(models.RowStatusRemoved, i, n, duplicate(k)))
		}
	}
	tgtSeen := make(map[string]int, len(targetByKey))
	for _, j := range tgtRows {
		k := tgtKeys[j]
		n := tgtSeen[k]
		tgtSeen[k]++
		if n >= len(sourceByKey[k]) {
			added = append(added, c.unmatched(models.RowStatusAdded, j, n, duplicate(k)))
		}
	}

	out := make([]models.RowClassification, 0, len(removed)+len(added)+len(matched))
	out = append(out, removed...)
	out = append(out, added...)
	return append(out, matched...)
}

func (c *rowComparator) unmatched(status models.RowStatus, row, occurrence int, duplicate bool) models.RowClassification {
	rc := models.RowClassification{
		Status:       status,
		SourceRow:    models.NoRow,
		TargetRow:    models.NoRow,
		Occurrence:   occurrence,
		DuplicateKey: duplicate,
	}
	if status == models.RowStatusRemoved {
		rc.SourceRow = row
		rc.Key = keyValues(c.source.Rows[row], c.sourceKey)
	} else {
		rc.TargetRow = row
		rc.Key = keyValues(c.target.Rows[row], c.targetKey)
	}
	return rc
}

func (c *rowComparator) matched(i, j, occurrence int, duplicate bool) models.RowClassification {
	srcRow, tgtRow := c.source.Rows[i], c.target.Rows[j]
	var diffs []models.Diff
	for n, sp := range c.sourcePairs {
		tp := c.targetPairs[n]
		if NormalizedEqual(srcRow[sp], tgtRow[tp], c.plan.Normalize) {
			continue
		}
		diffs = append(diffs, models.Diff{
			SourceColumn: c.plan.Pairs[n].Source,
			TargetColumn: c.plan.Pairs[n].Target,
			SourceValue:  srcRow[sp],
			TargetValue:  tgtRow[tp],
		})
	}
	status := models.RowStatusIdentical
	if len(diffs) > 0 {
		status = models.RowStatusModified
	}
	return models.RowClassification{
		Status:       status,
		Key:          keyValues(srcRow, c.sourceKey),
		SourceRow:    i,
		TargetRow:    j,
		Occurrence:   occurrence,
		DuplicateKey: duplicate,
		Diffs:        diffs,
	}
}

func keyValues(row models.Row, positions []int) []models.Value {
	values := make([]models.Value, len(positions))
	for i, p := range positions {
		values[i] = row[p]
	}
	return values
}

// statusRank orders classification groups in output order.
var statusRank = map[models.RowStatus]int{
	models.RowStatusRemoved:   0,
	models.RowStatusAdded:     1,
	models.RowStatusIdentical: 2,
	models.RowStatusModified:  2,
}

// sortClassifications restores the global output order after shards are merged.
func sortClassifications(rows []models.RowClassification) {
	position := func(rc models.RowClassification) int {
		if rc.Status == models.RowStatusAdded {
			return rc.TargetRow
		}
		return rc.SourceRow
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := statusRank[rows[i].Status], statusRank[rows[j].Status]
		if ri != rj {
			return ri < rj
		}
		return position(rows[i]) < position(rows[j])
	})
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// intersect returns values of a also in b, in a's order.
func intersect(a, b []string) []string {
	inB := toSet(b)
	var out []string
	for _, v := range a {
		if inB[v] {
			out = append(out, v)
		}
	}
	return out
}
