package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// textTable builds a table whose cells are all text, as read from CSV.
func textTable(t *testing.T, name string, columns []string, rows ...[]string) *models.Table {
	t.Helper()
	data := make([]models.Row, len(rows))
	for i, r := range rows {
		row := make(models.Row, len(r))
		for j, cell := range r {
			row[j] = models.String(cell)
		}
		data[i] = row
	}
	table, err := models.NewTable(name, columns, data)
	require.NoError(t, err)
	return table
}

// valueTable builds a table from typed cells.
func valueTable(t *testing.T, name string, columns []string, rows ...models.Row) *models.Table {
	t.Helper()
	table, err := models.NewTable(name, columns, rows)
	require.NoError(t, err)
	return table
}

func scenarioA(t *testing.T) (*models.Table, *models.Table) {
	source := textTable(t, "source", []string{"id", "name", "price"},
		[]string{"1", "Laptop", "1200"},
		[]string{"2", "Mouse", "25"},
		[]string{"3", "Keyboard", "75"},
		[]string{"4", "Monitor", "300"},
	)
	target := textTable(t, "target", []string{"product_id", "product_name", "cost"},
		[]string{"1", "Laptop", "1200"},
		[]string{"2", "Mouse", "25"},
		[]string{"3", "Keyboard", "75"},
	)
	return source, target
}

func scenarioB(t *testing.T) (*models.Table, *models.Table) {
	source := textTable(t, "source", []string{"user_id", "name", "city"},
		[]string{"1", "Alice", "New York"},
		[]string{"2", "Bob", "Los Angeles"},
	)
	target := textTable(t, "target", []string{"id", "name", "city"},
		[]string{"2", "Bob", "San Francisco"},
		[]string{"3", "Charlie", "Chicago"},
	)
	return source, target
}

func scenarioC(t *testing.T) (*models.Table, *models.Table) {
	source := textTable(t, "source", []string{"id", "value"},
		[]string{"1", "hello"},
		[]string{"2", "WORLD"},
		[]string{"3", "Value"},
	)
	target := textTable(t, "target", []string{"id", "value"},
		[]string{"1", "Hello"},
		[]string{"2", "world"},
		[]string{"3", "value"},
	)
	return source, target
}
