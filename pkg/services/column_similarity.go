package services

import (
	"errors"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

const (
	// NameSimilarityWeight and ValueOverlapWeight combine the two similarity signals.
	NameSimilarityWeight = 0.5
	ValueOverlapWeight   = 0.5

	// DefaultSampleSize bounds how many leading rows are sampled per column.
	DefaultSampleSize = 200
)

// ColumnSample is a column's name plus the distinct normalized values drawn from its
// leading rows. Absent and blank values are not sampled.
type ColumnSample struct {
	Name   string
	Kind   models.ColumnKind
	Values map[string]struct{}
}

// SimilarityFunc scores how likely two columns hold the same data, in [0,1].
type SimilarityFunc func(source, target ColumnSample) float64

// SampleColumn draws up to size values from column i of table, normalized
// case-insensitively and trimmed.
func SampleColumn(table *models.Table, i, size int) ColumnSample {
	if size <= 0 {
		size = DefaultSampleSize
	}
	sample := ColumnSample{
		Name:   table.Columns[i].Name,
		Kind:   table.Columns[i].Kind,
		Values: make(map[string]struct{}),
	}
	for _, v := range table.ColumnValues(i, size) {
		n := Normalize(v, sampleNormalization)
		if n.IsAbsent() || (n.Kind == models.ValueKindString && n.Str == "") {
			continue
		}
		sample.Values[sampleKey(n)] = struct{}{}
	}
	return sample
}

// SampleTable samples every column of table.
func SampleTable(table *models.Table, size int) []ColumnSample {
	samples := make([]ColumnSample, len(table.Columns))
	for i := range table.Columns {
		samples[i] = SampleColumn(table, i, size)
	}
	return samples
}

// sampleKey renders a sampled value without its kind so that "25" read from a CSV
// overlaps with 25 read from JSON.
func sampleKey(v models.Value) string {
	return v.String()
}

// ColumnSimilarity combines name similarity and value overlap with fixed weights.
// When neither column has any sampled value the overlap signal carries no information
// and the name score is returned alone, so an empty column still scores 1.0 against itself.
func ColumnSimilarity(source, target ColumnSample) float64 {
	name := NameSimilarity(source.Name, target.Name)
	if len(source.Values) == 0 && len(target.Values) == 0 {
		return name
	}
	return NameSimilarityWeight*name + ValueOverlapWeight*ValueOverlap(source, target)
}

// ValueOverlap returns the fraction of the smaller sample's values that also appear in
// the other sample. A column with no sampled values overlaps nothing.
func ValueOverlap(a, b ColumnSample) float64 {
	if len(a.Values) == 0 || len(b.Values) == 0 {
		return 0
	}
	small, large := a.Values, b.Values
	if len(large) < len(small) {
		small, large = large, small
	}
	matches := 0
	for v := range small {
		if _, ok := large[v]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(small))
}

// NameSimilarity scores two column names in [0,1]: the larger of an edit-distance
// ratio over the compacted names and a token-overlap (Dice) score over singularized
// name tokens. product_id, productId and PRODUCT-ID all compact to "productid".
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ca, cb := compactName(a), compactName(b)
	if ca == "" || cb == "" {
		return 0
	}
	if ca == cb {
		return 1
	}
	ratio := levenshtein.RatioForStrings([]rune(ca), []rune(cb), levenshtein.DefaultOptions)
	dice := tokenDice(NameTokens(a), NameTokens(b))
	if dice > ratio {
		return dice
	}
	return ratio
}

// compactName lower-cases a name and strips every non-alphanumeric separator.
func compactName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// NameTokens splits a column name on separators and camelCase boundaries and returns
// lower-cased, singularized tokens. "OrderLineItems" -> [order line item].
func NameTokens(name string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, inflection.Singular(strings.ToLower(string(cur))))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// fooBar -> foo|Bar ; HTTPServer -> HTTP|Server
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

// tokenDice is 2|A∩B| / (|A|+|B|) over token sets.
func tokenDice(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(setA)+len(setB))
}

// SimilarityConfig tunes sampling for the similarity estimator.
type SimilarityConfig struct {
	SampleSize int
}

// DefaultSimilarityConfig returns the default sampling configuration.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{SampleSize: DefaultSampleSize}
}

// Validate checks if the configuration is valid.
func (c SimilarityConfig) Validate() error {
	if c.SampleSize <= 0 {
		return errors.New("sample size must be greater than 0")
	}
	return nil
}
