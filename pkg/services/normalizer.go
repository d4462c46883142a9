package services

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// NormalizeOptions are independent transforms applied to text values before equality tests.
type NormalizeOptions struct {
	CaseInsensitive bool `json:"case_insensitive" yaml:"case_insensitive"`
	TrimWhitespace  bool `json:"trim_whitespace" yaml:"trim_whitespace"`
}

// sampleNormalization is the fixed normalization used when sampling values for column
// similarity, independent of the comparison's own options.
var sampleNormalization = NormalizeOptions{CaseInsensitive: true, TrimWhitespace: true}

// Normalize applies opts to a text value. Every other kind, including Absent and
// Opaque, passes through unchanged. Normalize is total and idempotent.
func Normalize(v models.Value, opts NormalizeOptions) models.Value {
	if v.Kind != models.ValueKindString {
		return v
	}
	s := v.Str
	if opts.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	if opts.CaseInsensitive {
		s = foldCase(s)
	}
	return models.String(s)
}

// foldCase lower-cases s. Invalid UTF-8 bytes are kept as they are instead of being
// replaced with U+FFFD, so distinct byte strings never fold together.
func foldCase(s string) string {
	if utf8.ValidString(s) {
		return strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(s[0])
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		s = s[size:]
	}
	return b.String()
}

// NormalizedEqual reports whether a and b are equal after normalization.
func NormalizedEqual(a, b models.Value, opts NormalizeOptions) bool {
	return Normalize(a, opts).Equal(Normalize(b, opts))
}

// compositeKey concatenates the normalized keys of the given row positions.
// Each part is length-prefixed so distinct tuples never collide.
func compositeKey(row models.Row, positions []int, opts NormalizeOptions) string {
	if len(positions) == 1 {
		return Normalize(row[positions[0]], opts).Key()
	}
	var b strings.Builder
	for _, p := range positions {
		k := Normalize(row[p], opts).Key()
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}
