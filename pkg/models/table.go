package models

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
)

// Row holds one value per table column, in column order.
type Row []Value

// Table is one side's fully materialized data set.
// Tables are built once by the ingestion layer and treated as read-only afterwards;
// the comparison engine never mutates them, so they may be shared across goroutines.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row

	index map[string]int
}

// NewTable validates the column names and row widths and infers column kinds.
// Column names must be non-empty and unique; every row must have exactly one value
// per column (use Absent for missing cells).
func NewTable(name string, columnNames []string, rows []Row) (*Table, error) {
	index := make(map[string]int, len(columnNames))
	columns := make([]Column, len(columnNames))
	for i, col := range columnNames {
		if col == "" {
			return nil, fmt.Errorf("%w: table %q: column %d has an empty name", apperrors.ErrMalformedInput, name, i+1)
		}
		if _, dup := index[col]; dup {
			return nil, fmt.Errorf("%w: table %q: duplicate column name %q", apperrors.ErrMalformedInput, name, col)
		}
		index[col] = i
		columns[i] = Column{Name: col}
	}

	for i, row := range rows {
		if len(row) != len(columnNames) {
			return nil, fmt.Errorf("%w: table %q: row %d has %d values, expected %d",
				apperrors.ErrMalformedInput, name, i+1, len(row), len(columnNames))
		}
	}

	t := &Table{Name: name, Columns: columns, Rows: rows, index: index}
	for i := range t.Columns {
		t.Columns[i].Kind = InferColumnKind(t.ColumnValues(i, KindSampleSize))
	}
	return t, nil
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		for i, c := range t.Columns {
			if c.Name == name {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// ColumnValues returns up to limit leading values of column i (all values when limit <= 0).
func (t *Table) ColumnValues(i, limit int) []Value {
	n := len(t.Rows)
	if limit > 0 && limit < n {
		n = limit
	}
	values := make([]Value, n)
	for r := 0; r < n; r++ {
		values[r] = t.Rows[r][i]
	}
	return values
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}
