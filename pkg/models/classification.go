package models

// RowStatus tags a RowClassification.
type RowStatus string

const (
	RowStatusRemoved   RowStatus = "removed"   // source only
	RowStatusAdded     RowStatus = "added"     // target only
	RowStatusIdentical RowStatus = "identical" // matched, no diffs
	RowStatusModified  RowStatus = "modified"  // matched, at least one diff
)

// IsMatched reports whether the status describes a row present on both sides.
func (s RowStatus) IsMatched() bool {
	return s == RowStatusIdentical || s == RowStatusModified
}

// NoRow marks a missing side in RowClassification.SourceRow / TargetRow.
const NoRow = -1

// Diff is one column-level discrepancy within a modified row. Values are the raw
// (un-normalized) cells as ingested.
type Diff struct {
	SourceColumn string `json:"source_column"`
	TargetColumn string `json:"target_column"`
	SourceValue  Value  `json:"source_value"`
	TargetValue  Value  `json:"target_value"`
}

// RowClassification is the outcome for one key instance.
//
// When a key value occurs more than once on either side, the n-th source occurrence is
// paired with the n-th target occurrence; Occurrence is n (0-based) and DuplicateKey is
// set on every classification for that key, so each input row still appears exactly once.
type RowClassification struct {
	Status       RowStatus `json:"status"`
	Key          []Value   `json:"key"`
	SourceRow    int       `json:"source_row"`
	TargetRow    int       `json:"target_row"`
	Occurrence   int       `json:"occurrence"`
	DuplicateKey bool      `json:"duplicate_key"`
	Diffs        []Diff    `json:"diffs,omitempty"`
}
