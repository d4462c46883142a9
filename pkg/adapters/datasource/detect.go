package datasource

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
)

var urlSchemes = map[string]string{
	"postgres://":   TypePostgres,
	"postgresql://": TypePostgres,
	"sqlserver://":  TypeMSSQL,
}

// Detect returns the source type for a location. Database URLs are recognized by
// scheme; files by extension, then by peeking at the first line.
func Detect(location string) (string, error) {
	lower := strings.ToLower(location)
	for scheme, sourceType := range urlSchemes {
		if strings.HasPrefix(lower, scheme) {
			return sourceType, nil
		}
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".csv", ".tsv":
		return TypeCSV, nil
	case ".jsonl", ".ndjson":
		return TypeJSONL, nil
	}

	f, err := os.Open(location)
	if err != nil {
		return "", fmt.Errorf("open source %q: %w", location, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read source %q: %w", location, err)
	}
	line = bytes.TrimSpace(line)

	if len(line) > 0 && line[0] == '{' && json.Valid(line) {
		return TypeJSONL, nil
	}
	if bytes.ContainsAny(line, ",\t") {
		return TypeCSV, nil
	}
	return "", fmt.Errorf("%w: unable to determine format of %q", apperrors.ErrUnsupportedSource, location)
}

// defaultDelimiter picks the CSV delimiter when none is configured.
func defaultDelimiter(location string) rune {
	if strings.EqualFold(filepath.Ext(location), ".tsv") {
		return '\t'
	}
	return ','
}
