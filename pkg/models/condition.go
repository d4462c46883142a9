package models

// ConditionKind identifies a non-fatal data-quality or confidence annotation.
type ConditionKind string

const (
	ConditionLowMappingCoverage      ConditionKind = "low_mapping_coverage"
	ConditionDuplicateKey            ConditionKind = "duplicate_key"
	ConditionLowConfidenceIdentifier ConditionKind = "low_confidence_identifier"
	ConditionNullIdentifier          ConditionKind = "null_identifier"
	ConditionEmptyTable              ConditionKind = "empty_table"
	ConditionNoComparableColumns     ConditionKind = "no_comparable_columns"
)

// Severity of a condition. Rendering decides whether and how to surface it.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Side names which table a condition refers to.
type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
	SideBoth   Side = "both"
)

// Condition is attached to a ComparisonResult instead of being raised as an error.
type Condition struct {
	Kind     ConditionKind `json:"kind"`
	Severity Severity      `json:"severity"`
	Side     Side          `json:"side,omitempty"`
	Message  string        `json:"message"`
	Columns  []string      `json:"columns,omitempty"`
	// Values lists offending values (e.g. duplicated keys), rendered as text.
	Values []string `json:"values,omitempty"`
}
