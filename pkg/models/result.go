package models

// ColumnStat is the agreement rate of one compared column pair across matched rows.
type ColumnStat struct {
	SourceColumn string  `json:"source_column"`
	TargetColumn string  `json:"target_column"`
	Matched      int     `json:"matched"` // matched rows considered
	Agreed       int     `json:"agreed"`  // of those, rows with equal normalized values
	Rate         float64 `json:"rate"`    // Agreed / Matched, 0 when Matched == 0
}

// SummaryStats aggregates a comparison's row classifications.
type SummaryStats struct {
	SourceRows    int `json:"source_rows"`
	TargetRows    int `json:"target_rows"`
	Added         int `json:"added"`
	Removed       int `json:"removed"`
	Identical     int `json:"identical"`
	Modified      int `json:"modified"`
	DuplicateKeys int `json:"duplicate_key_rows"`

	// Columns is sorted by Rate descending, ties in source column order, so the
	// first entry is the highest-agreement pair and the last the lowest.
	Columns []ColumnStat `json:"columns"`
}

// Matched returns the number of rows present on both sides.
func (s SummaryStats) Matched() int {
	return s.Identical + s.Modified
}

// HasDifferences reports whether any row was added, removed or modified.
func (s SummaryStats) HasDifferences() bool {
	return s.Added+s.Removed+s.Modified > 0
}

// Highest returns the highest-agreement column pair.
func (s SummaryStats) Highest() (ColumnStat, bool) {
	if len(s.Columns) == 0 {
		return ColumnStat{}, false
	}
	return s.Columns[0], true
}

// Lowest returns the lowest-agreement column pair.
func (s SummaryStats) Lowest() (ColumnStat, bool) {
	if len(s.Columns) == 0 {
		return ColumnStat{}, false
	}
	return s.Columns[len(s.Columns)-1], true
}

// ComparisonResult is produced once per comparison and never mutated afterwards.
// Rows are ordered: removed (source order), added (target order), matched (source order).
type ComparisonResult struct {
	Mapping    ColumnMapping       `json:"mapping"`
	Key        IdentifierKey       `json:"key"`
	Compared   []ColumnPair        `json:"compared"`
	Rows       []RowClassification `json:"rows"`
	Summary    SummaryStats        `json:"summary"`
	Conditions []Condition         `json:"conditions"`
}

// ConditionsOf returns the conditions of the given kind.
func (r *ComparisonResult) ConditionsOf(kind ConditionKind) []Condition {
	var out []Condition
	for _, c := range r.Conditions {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
