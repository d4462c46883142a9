package datasource

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

func TestValueFromSQL(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    any
		expected models.Value
	}{
		{"nil", nil, models.Absent()},
		{"bool", true, models.Bool(true)},
		{"string", "Widget", models.String("Widget")},
		{"bytes", []byte("Widget"), models.String("Widget")},
		{"int32", int32(42), models.Number(42)},
		{"int64", int64(-7), models.Number(-7)},
		{"uint8", uint8(255), models.Number(255)},
		{"float32", float32(1.5), models.Number(1.5)},
		{"float64", 9.99, models.Number(9.99)},
		{"big int", big.NewInt(1 << 40), models.Number(1 << 40)},
		{"time", ts, models.String("2024-03-01T12:30:00Z")},
		{"uuid bytes", [16]byte(id), models.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
		{"uuid", id, models.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
		{"json object", map[string]any{"b": 2, "a": 1}, models.Opaque(`{"a":1,"b":2}`)},
		{"array", []any{"x", 1}, models.Opaque(`["x",1]`)},
		{"stringer", time.Duration(90) * time.Second, models.Opaque("1m30s")},
		{"other", struct{ X int }{3}, models.Opaque("{3}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValueFromSQL(tt.input))
		})
	}
}

func TestNumberFromText(t *testing.T) {
	assert.Equal(t, models.Number(1234.5), NumberFromText("1234.5000"))
	assert.Equal(t, models.Number(-0.01), NumberFromText("-0.01"))
	assert.Equal(t, models.String("n/a"), NumberFromText("n/a"))
}

func TestSelectQuery(t *testing.T) {
	quote := func(parts ...string) string { return `"` + strings.Join(parts, `"."`) + `"` }

	tests := []struct {
		input    string
		expected string
	}{
		{"orders", `SELECT * FROM "orders"`},
		{"  sales.orders ", `SELECT * FROM "sales"."orders"`},
		{"SELECT id, total FROM orders WHERE total > 0", "SELECT id, total FROM orders WHERE total > 0"},
		{"orders o", "orders o"},
	}

	for _, tt := range tests {
		got, err := SelectQuery(tt.input, quote)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}

	_, err := SelectQuery("   ", quote)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}
