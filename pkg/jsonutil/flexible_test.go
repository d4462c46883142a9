package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

func TestFlexibleValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  models.Value
	}{
		{name: "string value", input: json.RawMessage(`"hello"`), want: models.String("hello")},
		{name: "empty string", input: json.RawMessage(`""`), want: models.String("")},
		{name: "numeric string stays text", input: json.RawMessage(`"42"`), want: models.String("42")},
		{name: "integer value", input: json.RawMessage(`42`), want: models.Number(42)},
		{name: "float value", input: json.RawMessage(`3.14`), want: models.Number(3.14)},
		{name: "negative exponent", input: json.RawMessage(`-1.5e3`), want: models.Number(-1500)},
		{name: "boolean true", input: json.RawMessage(`true`), want: models.Bool(true)},
		{name: "boolean false", input: json.RawMessage(`false`), want: models.Bool(false)},
		{name: "null value", input: json.RawMessage(`null`), want: models.Absent()},
		{name: "empty raw message", input: json.RawMessage{}, want: models.Absent()},
		{name: "nil raw message", input: nil, want: models.Absent()},
		{name: "surrounding whitespace", input: json.RawMessage(" 7 \n"), want: models.Number(7)},
		{name: "object is compacted", input: json.RawMessage(`{ "key" : "value" }`), want: models.Opaque(`{"key":"value"}`)},
		{name: "array is compacted", input: json.RawMessage(`[1, 2, 3]`), want: models.Opaque(`[1,2,3]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlexibleValue(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "expected %#v, got %#v", tt.want, got)
			assert.Equal(t, tt.want.Kind, got.Kind)
		})
	}
}

func TestFlexibleValue_Invalid(t *testing.T) {
	for _, input := range []string{`"unterminated`, `tru`, `{"a":`, `12abc`} {
		_, err := FlexibleValue(json.RawMessage(input))
		assert.Error(t, err, "input %q", input)
	}
}
