package models

// PairOrigin records how a column pair entered the mapping.
type PairOrigin string

const (
	PairOriginAuto   PairOrigin = "auto"
	PairOriginForced PairOrigin = "forced" // manual override, never scored
)

// ForcedScore is the sentinel score carried by manual pairs.
const ForcedScore = -1.0

// ColumnPair is one accepted source→target correspondence.
type ColumnPair struct {
	Source string     `json:"source"`
	Target string     `json:"target"`
	Score  float64    `json:"score"` // ForcedScore when Origin is forced
	Origin PairOrigin `json:"origin"`
}

// IsForced reports whether the pair came from a manual override.
func (p ColumnPair) IsForced() bool {
	return p.Origin == PairOriginForced
}

// ColumnMapping is a one-to-one partial correspondence between source and target
// columns. Pairs are ordered by source column declaration order.
type ColumnMapping struct {
	Pairs      []ColumnPair `json:"pairs"`
	SourceOnly []string     `json:"source_only"`
	TargetOnly []string     `json:"target_only"`
}

// TargetFor returns the target column mapped to source.
func (m *ColumnMapping) TargetFor(source string) (string, bool) {
	for _, p := range m.Pairs {
		if p.Source == source {
			return p.Target, true
		}
	}
	return "", false
}

// Pair returns the mapped pair for a source column.
func (m *ColumnMapping) Pair(source string) (ColumnPair, bool) {
	for _, p := range m.Pairs {
		if p.Source == source {
			return p, true
		}
	}
	return ColumnPair{}, false
}

// SourceColumns returns the mapped source columns in pair order.
func (m *ColumnMapping) SourceColumns() []string {
	cols := make([]string, len(m.Pairs))
	for i, p := range m.Pairs {
		cols[i] = p.Source
	}
	return cols
}

// KeyOrigin records how the identifier key was chosen.
type KeyOrigin string

const (
	KeyOriginManual   KeyOrigin = "manual"
	KeyOriginAuto     KeyOrigin = "auto"
	KeyOriginFallback KeyOrigin = "fallback" // all candidate columns jointly
)

// IdentifierKey is the ordered set of columns used to join rows across the tables.
// TargetColumns[i] is the mapped counterpart of SourceColumns[i].
type IdentifierKey struct {
	SourceColumns []string  `json:"source_columns"`
	TargetColumns []string  `json:"target_columns"`
	Origin        KeyOrigin `json:"origin"`

	// Uniqueness is distinct key values / row count on each side (1.0 for empty tables).
	SourceUniqueness float64 `json:"source_uniqueness"`
	TargetUniqueness float64 `json:"target_uniqueness"`

	// LowConfidence is set when no column combination reached the uniqueness threshold.
	LowConfidence bool `json:"low_confidence"`
}

// IsEmpty reports whether no key columns are available (no mapped columns at all).
func (k *IdentifierKey) IsEmpty() bool {
	return k == nil || len(k.SourceColumns) == 0
}
