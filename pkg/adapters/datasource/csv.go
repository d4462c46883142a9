package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

func init() {
	Register(AdapterRegistration{
		Info: AdapterInfo{
			Type:        TypeCSV,
			DisplayName: "CSV",
			Description: "Delimited text file with a header row",
		},
		Factory: func(ctx context.Context, spec SourceSpec, opts Options) (Loader, error) {
			return NewCSVLoader(spec)
		},
	})
}

// CSVLoader reads a delimited file. Every cell loads as a text value; cells equal to
// the null token load as absent. Short rows are padded with absent values.
type CSVLoader struct {
	spec      SourceSpec
	delimiter rune
}

// NewCSVLoader validates the delimiter for spec.
func NewCSVLoader(spec SourceSpec) (*CSVLoader, error) {
	delimiter := defaultDelimiter(spec.Location)
	if spec.Delimiter != "" {
		if spec.Delimiter == `\t` {
			spec.Delimiter = "\t"
		}
		r, size := utf8.DecodeRuneInString(spec.Delimiter)
		if size != len(spec.Delimiter) || r == utf8.RuneError || r == '"' || r == '\n' || r == '\r' {
			return nil, fmt.Errorf("%w: delimiter must be a single character, got %q", apperrors.ErrInvalidConfig, spec.Delimiter)
		}
		delimiter = r
	}
	return &CSVLoader{spec: spec, delimiter: delimiter}, nil
}

// Load reads the whole file.
func (l *CSVLoader) Load(ctx context.Context) (*models.Table, error) {
	f, err := os.Open(l.spec.Location)
	if err != nil {
		return nil, fmt.Errorf("open csv %q: %w", l.spec.Location, err)
	}
	defer f.Close()
	return l.read(ctx, f)
}

func (l *CSVLoader) read(ctx context.Context, r io.Reader) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = l.delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv %q has no header row", apperrors.ErrMalformedInput, l.spec.Location)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv %q: %v", apperrors.ErrMalformedInput, l.spec.Location, err)
	}
	columns := append([]string(nil), header...)
	if len(columns) > 0 {
		columns[0] = strings.TrimPrefix(columns[0], "\ufeff")
	}

	var rows []models.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv %q: %v", apperrors.ErrMalformedInput, l.spec.Location, err)
		}
		if len(rows)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line, _ := reader.FieldPos(0)
		if len(record) > len(columns) {
			return nil, fmt.Errorf("%w: csv %q line %d: %d fields, header has %d",
				apperrors.ErrMalformedInput, l.spec.Location, line, len(record), len(columns))
		}

		row := make(models.Row, len(columns))
		for i := range row {
			if i >= len(record) || (l.spec.NullToken != "" && record[i] == l.spec.NullToken) {
				row[i] = models.Absent()
				continue
			}
			row[i] = models.String(record[i])
		}
		rows = append(rows, row)
	}

	return models.NewTable(l.spec.Name, columns, rows)
}

// Close is a no-op; the file is closed by Load.
func (l *CSVLoader) Close() error { return nil }

const cancelCheckInterval = 4096
