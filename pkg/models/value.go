package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// ValueKind identifies which variant a Value holds.
type ValueKind string

const (
	ValueKindAbsent ValueKind = "absent"
	ValueKindString ValueKind = "string"
	ValueKindNumber ValueKind = "number"
	ValueKindBool   ValueKind = "bool"
	// ValueKindOpaque holds anything the ingestion layer could not express as a scalar
	// (nested JSON, driver-specific types). Compared by its textual representation.
	ValueKindOpaque ValueKind = "opaque"
)

// Value is a single cell. The zero value is Absent, which is distinct from "".
type Value struct {
	Kind ValueKind
	Str  string // String and Opaque payload
	Num  float64
	Bool bool
}

// Absent returns the absent (null) value.
func Absent() Value { return Value{Kind: ValueKindAbsent} }

// String returns a text value.
func String(s string) Value { return Value{Kind: ValueKindString, Str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{Kind: ValueKindNumber, Num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: ValueKindBool, Bool: b} }

// Opaque returns a value compared only by its raw representation.
func Opaque(raw string) Value { return Value{Kind: ValueKindOpaque, Str: raw} }

// IsAbsent reports whether v is the absent value. An empty Kind counts as absent.
func (v Value) IsAbsent() bool {
	return v.Kind == ValueKindAbsent || v.Kind == ""
}

// Equal compares two values by their rendered text, without any normalization, so
// text "1" read from a CSV equals the number 1 read from a database while "1.0" does
// not. Absent equals only Absent.
func (v Value) Equal(o Value) bool {
	if v.IsAbsent() || o.IsAbsent() {
		return v.IsAbsent() && o.IsAbsent()
	}
	return v.String() == o.String()
}

// Key returns a canonical encoding of v that is equal for two values exactly when
// Equal reports true. Only Absent carries its own marker.
func (v Value) Key() string {
	if v.IsAbsent() {
		return "\x00"
	}
	return "v:" + v.String()
}

// String renders v for reports. Absent renders as an empty string; use IsAbsent to
// tell it apart from an empty text value.
func (v Value) String() string {
	switch {
	case v.IsAbsent():
		return ""
	case v.Kind == ValueKindNumber:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e15 {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case v.Kind == ValueKindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// MarshalJSON emits the value as its natural JSON scalar; Absent becomes null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.IsAbsent():
		return []byte("null"), nil
	case v.Kind == ValueKindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.Num)
	case v.Kind == ValueKindBool:
		return json.Marshal(v.Bool)
	case v.Kind == ValueKindOpaque && json.Valid([]byte(v.Str)):
		return []byte(v.Str), nil
	default:
		return json.Marshal(v.Str)
	}
}
