package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrConflictingColumns = errors.New("conflicting column selection")
	ErrUnsupportedSource  = errors.New("unsupported source")
	ErrMalformedInput     = errors.New("malformed input")
)

// ConfigError is a fatal configuration problem detected before a comparison runs.
// Columns names every offending column so the caller can report them verbatim.
type ConfigError struct {
	Field   string
	Columns []string
	Err     error // ErrUnknownColumn, ErrConflictingColumns, or nil
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvalidConfig.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	if len(e.Columns) > 0 {
		fmt.Fprintf(&b, " %q", e.Columns)
	}
	return b.String()
}

// Unwrap lets errors.Is match both ErrInvalidConfig and the specific cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidConfig}
	}
	return []error{ErrInvalidConfig, e.Err}
}

// UnknownColumns builds a ConfigError for columns that do not exist on the named side.
func UnknownColumns(field string, columns ...string) *ConfigError {
	return &ConfigError{Field: field, Columns: columns, Err: ErrUnknownColumn}
}

// ConflictingColumns builds a ConfigError for columns listed in mutually exclusive settings.
func ConflictingColumns(field string, columns ...string) *ConfigError {
	return &ConfigError{Field: field, Columns: columns, Err: ErrConflictingColumns}
}
