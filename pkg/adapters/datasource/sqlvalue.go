package datasource

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// ValueFromSQL converts a value scanned from a database driver into a cell value.
// Numbers stay numeric, times render as UTC RFC 3339 text, UUID byte arrays render in
// canonical form, and composite values (arrays, JSON documents) become opaque JSON.
func ValueFromSQL(v any) models.Value {
	switch val := v.(type) {
	case nil:
		return models.Absent()
	case bool:
		return models.Bool(val)
	case string:
		return models.String(val)
	case []byte:
		return models.String(string(val))
	case int:
		return models.Number(float64(val))
	case int8:
		return models.Number(float64(val))
	case int16:
		return models.Number(float64(val))
	case int32:
		return models.Number(float64(val))
	case int64:
		return models.Number(float64(val))
	case uint8:
		return models.Number(float64(val))
	case uint16:
		return models.Number(float64(val))
	case uint32:
		return models.Number(float64(val))
	case uint64:
		return models.Number(float64(val))
	case float32:
		return models.Number(float64(val))
	case float64:
		return models.Number(val)
	case *big.Int:
		f, _ := new(big.Float).SetInt(val).Float64()
		return models.Number(f)
	case time.Time:
		return models.String(val.UTC().Format(time.RFC3339Nano))
	case [16]byte:
		return models.String(uuid.UUID(val).String())
	case uuid.UUID:
		return models.String(val.String())
	case map[string]any, []any:
		raw, err := json.Marshal(val)
		if err != nil {
			return models.Opaque(fmt.Sprint(val))
		}
		return models.Opaque(string(raw))
	case fmt.Stringer:
		return models.Opaque(val.String())
	default:
		return models.Opaque(fmt.Sprint(val))
	}
}

// NumberFromText parses a decimal rendered as text by a driver (NUMERIC, MONEY).
// Unparseable text falls back to a text value.
func NumberFromText(s string) models.Value {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.String(s)
	}
	return models.Number(f)
}

var bareTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// SelectQuery returns query unchanged, or SELECT * over it when it is a bare
// (optionally schema-qualified) table name quoted with quote.
func SelectQuery(query string, quote func(parts ...string) string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: database sources need a query or table name", apperrors.ErrInvalidConfig)
	}
	if bareTableName.MatchString(query) {
		return "SELECT * FROM " + quote(strings.Split(query, ".")...), nil
	}
	return query, nil
}
