package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// FlexibleValue converts a json.RawMessage to a cell value. Scalars keep their JSON
// type; objects and arrays become Opaque values holding compact JSON text.
// Returns Absent for null/empty.
func FlexibleValue(raw json.RawMessage) (models.Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return models.Absent(), nil
	}

	switch trimmed[0] {
	case '"':
		var strVal string
		if err := json.Unmarshal(trimmed, &strVal); err != nil {
			return models.Value{}, fmt.Errorf("invalid JSON string: %w", err)
		}
		return models.String(strVal), nil
	case 't', 'f':
		var boolVal bool
		if err := json.Unmarshal(trimmed, &boolVal); err != nil {
			return models.Value{}, fmt.Errorf("invalid JSON literal: %w", err)
		}
		return models.Bool(boolVal), nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return models.Value{}, fmt.Errorf("invalid JSON %s: %w", containerName(trimmed[0]), err)
		}
		return models.Opaque(buf.String()), nil
	}

	var numVal float64
	if err := json.Unmarshal(trimmed, &numVal); err != nil {
		return models.Value{}, fmt.Errorf("invalid JSON value %q: %w", string(trimmed), err)
	}
	return models.Number(numVal), nil
}

func containerName(c byte) string {
	if c == '{' {
		return "object"
	}
	return "array"
}
