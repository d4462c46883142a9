package datasource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// maxJSONLLine bounds a single record.
const maxJSONLLine = 16 << 20

func init() {
	Register(AdapterRegistration{
		Info: AdapterInfo{
			Type:        TypeJSONL,
			DisplayName: "JSON Lines",
			Description: "One JSON object per line",
		},
		Factory: func(ctx context.Context, spec SourceSpec, opts Options) (Loader, error) {
			return NewJSONLLoader(spec), nil
		},
	})
}

// JSONLLoader reads one JSON object per line. Columns appear in first-seen key order
// across all records; keys missing from a record load as absent values.
type JSONLLoader struct {
	spec SourceSpec
}

// NewJSONLLoader returns a loader for spec.
func NewJSONLLoader(spec SourceSpec) *JSONLLoader {
	return &JSONLLoader{spec: spec}
}

type jsonlCell struct {
	col   int
	value models.Value
}

// Load reads the whole file.
func (l *JSONLLoader) Load(ctx context.Context) (*models.Table, error) {
	f, err := os.Open(l.spec.Location)
	if err != nil {
		return nil, fmt.Errorf("open jsonl %q: %w", l.spec.Location, err)
	}
	defer f.Close()
	return l.read(ctx, f)
}

func (l *JSONLLoader) read(ctx context.Context, r io.Reader) (*models.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)

	var columns []string
	index := make(map[string]int)
	var records [][]jsonlCell

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if lineNo%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := l.parseRecord(line, lineNo, index, &columns)
		if err != nil {
			return nil, err
		}
		records = append(records, cells)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: jsonl %q line %d: %v", apperrors.ErrMalformedInput, l.spec.Location, lineNo+1, err)
	}

	rows := make([]models.Row, len(records))
	for i, cells := range records {
		row := make(models.Row, len(columns))
		for c := range row {
			row[c] = models.Absent()
		}
		for _, cell := range cells {
			row[cell.col] = cell.value
		}
		rows[i] = row
	}
	return models.NewTable(l.spec.Name, columns, rows)
}

// parseRecord walks the top-level object so key order is preserved.
func (l *JSONLLoader) parseRecord(line []byte, lineNo int, index map[string]int, columns *[]string) ([]jsonlCell, error) {
	malformed := func(format string, args ...any) error {
		return fmt.Errorf("%w: jsonl %q line %d: %s", apperrors.ErrMalformedInput, l.spec.Location, lineNo, fmt.Sprintf(format, args...))
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("%v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, malformed("record is not a JSON object")
	}

	var cells []jsonlCell
	seen := make(map[int]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("%v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, malformed("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed("value of %q: %v", key, err)
		}
		value, err := jsonutil.FlexibleValue(raw)
		if err != nil {
			return nil, malformed("value of %q: %v", key, err)
		}

		col, known := index[key]
		if !known {
			col = len(*columns)
			index[key] = col
			*columns = append(*columns, key)
		}
		if seen[col] {
			return nil, malformed("duplicate key %q", key)
		}
		seen[col] = true
		cells = append(cells, jsonlCell{col: col, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed("%v", err)
	}
	if dec.More() {
		return nil, malformed("trailing data after record")
	}
	return cells, nil
}

// Close is a no-op; the file is closed by Load.
func (l *JSONLLoader) Close() error { return nil }
