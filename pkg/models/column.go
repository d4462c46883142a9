package models

import (
	"strconv"
	"strings"
)

// ColumnKind is a coarse type inferred from sampled values.
// It is a heuristic signal only and is never enforced against row values.
type ColumnKind string

const (
	ColumnKindNumeric   ColumnKind = "numeric"
	ColumnKindText      ColumnKind = "text"
	ColumnKindBoolean   ColumnKind = "boolean"
	ColumnKindNullHeavy ColumnKind = "null_heavy"
	ColumnKindUnknown   ColumnKind = "unknown"
)

const (
	// KindSampleSize bounds how many leading values are inspected to infer a ColumnKind.
	KindSampleSize = 200

	// NullHeavyThreshold is the share of absent or blank sampled values at which a
	// column is classified null-heavy.
	NullHeavyThreshold = 0.5
)

// Column is a named column with its inferred kind.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// booleanSets are the value pairs accepted as boolean-like text, compared lower-cased.
var booleanSets = []map[string]bool{
	{"0": true, "1": true},
	{"true": true, "false": true},
	{"yes": true, "no": true},
	{"y": true, "n": true},
	{"t": true, "f": true},
}

// InferColumnKind classifies a column from its sampled values.
// Native bools and numbers win outright; text is inspected for numeric and
// boolean-like content.
func InferColumnKind(values []Value) ColumnKind {
	if len(values) == 0 {
		return ColumnKindUnknown
	}

	var nulls, numbers, bools int
	texts := make([]string, 0, len(values))
	for _, v := range values {
		switch {
		case v.IsAbsent():
			nulls++
		case v.Kind == ValueKindNumber:
			numbers++
		case v.Kind == ValueKindBool:
			bools++
		case v.Kind == ValueKindOpaque:
			texts = append(texts, v.Str)
		default:
			s := strings.TrimSpace(v.Str)
			if s == "" {
				nulls++
				continue
			}
			texts = append(texts, s)
		}
	}

	if float64(nulls)/float64(len(values)) >= NullHeavyThreshold {
		return ColumnKindNullHeavy
	}

	present := len(values) - nulls
	switch {
	case bools == present:
		return ColumnKindBoolean
	case numbers == present:
		return ColumnKindNumeric
	case bools+numbers > 0 && len(texts) == 0:
		return ColumnKindUnknown
	}

	if numbers == 0 && bools == 0 && hasOnlyBooleanText(texts) {
		return ColumnKindBoolean
	}
	if bools == 0 && allNumericText(texts) {
		return ColumnKindNumeric
	}
	return ColumnKindText
}

// hasOnlyBooleanText returns true if the values use both members of one boolean-like
// pair and nothing else. A single repeated "1" is numeric, not boolean.
func hasOnlyBooleanText(texts []string) bool {
	distinct := make(map[string]struct{}, 2)
	for _, s := range texts {
		distinct[strings.ToLower(s)] = struct{}{}
	}
	if len(distinct) != 2 {
		return false
	}
	for _, set := range booleanSets {
		allMatch := true
		for _, s := range texts {
			if !set[strings.ToLower(s)] {
				allMatch = false
				break
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}

func allNumericText(texts []string) bool {
	for _, s := range texts {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
	}
	return true
}
