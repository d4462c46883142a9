package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/logging"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// Adapter loads a comparison side from PostgreSQL.
type Adapter struct {
	spec datasource.SourceSpec
	pool *pgxpool.Pool
}

// NewAdapter opens a pool for spec.Location and verifies the server is reachable.
func NewAdapter(ctx context.Context, spec datasource.SourceSpec, opts datasource.Options) (*Adapter, error) {
	cfg, err := poolConfig(spec.Location, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}

	if err := datasource.Ping(ctx, opts, spec.Location, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	return &Adapter{spec: spec, pool: pool}, nil
}

// Load runs the source query and materializes every row.
func (a *Adapter) Load(ctx context.Context) (*models.Table, error) {
	query, err := datasource.SelectQuery(a.spec.Query, QuoteIdentifier)
	if err != nil {
		return nil, err
	}

	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query %q: %w", logging.SanitizeQuery(query), err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	var tableRows []models.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make(models.Row, len(values))
		for i, v := range values {
			row[i] = convertValue(v)
		}
		tableRows = append(tableRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return models.NewTable(a.spec.Name, columns, tableRows)
}

// Close releases the pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// QuoteIdentifier quotes a possibly schema-qualified name using PostgreSQL's
// standard double-quote quoting.
func QuoteIdentifier(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

// convertValue handles pgx types the generic conversion does not know.
func convertValue(v any) models.Value {
	switch val := v.(type) {
	case pgtype.Numeric:
		if !val.Valid {
			return models.Absent()
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return models.Opaque(fmt.Sprint(val))
		}
		return models.Number(f.Float64)
	default:
		return datasource.ValueFromSQL(v)
	}
}

// Ensure Adapter implements Loader at compile time.
var _ datasource.Loader = (*Adapter)(nil)
