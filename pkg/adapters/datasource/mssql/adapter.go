package mssql

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/config"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/logging"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
)

// Adapter loads a comparison side from SQL Server.
type Adapter struct {
	spec datasource.SourceSpec
	db   *sql.DB
}

// NewAdapter opens a connection pool for a sqlserver:// URL and verifies it with a ping.
// When running in Docker, localhost is resolved to host.docker.internal.
func NewAdapter(ctx context.Context, spec datasource.SourceSpec, opts datasource.Options) (*Adapter, error) {
	db, err := sql.Open("sqlserver", config.ResolveDSNForDocker(spec.Location))
	if err != nil {
		return nil, fmt.Errorf("open SQL Server connection: %s", logging.SanitizeError(err))
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(int(opts.MaxConns))
	}

	if err := datasource.Ping(ctx, opts, spec.Location, db.PingContext); err != nil {
		db.Close()
		return nil, err
	}

	return &Adapter{spec: spec, db: db}, nil
}

// Load runs the source query and materializes every row.
func (a *Adapter) Load(ctx context.Context) (*models.Table, error) {
	query, err := datasource.SelectQuery(a.spec.Query, QuoteIdentifier)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query %q: %w", logging.SanitizeQuery(query), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}
	typeNames := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		typeNames[i] = ct.DatabaseTypeName()
	}

	var tableRows []models.Row
	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(models.Row, len(columns))
		for i, v := range values {
			row[i] = convertValue(v, typeNames[i])
		}
		tableRows = append(tableRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return models.NewTable(a.spec.Name, columns, tableRows)
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// convertValue interprets the raw bytes the driver returns for decimals, GUIDs,
// and binary columns; everything else goes through the generic conversion.
func convertValue(v any, sqlType string) models.Value {
	b, ok := v.([]byte)
	if !ok {
		return datasource.ValueFromSQL(v)
	}

	switch {
	case isDecimalType(sqlType):
		return datasource.NumberFromText(string(b))
	case strings.EqualFold(sqlType, "UNIQUEIDENTIFIER"):
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return models.Opaque("0x" + hex.EncodeToString(b))
		}
		return models.String(id.String())
	case isBinaryType(sqlType):
		return models.Opaque("0x" + hex.EncodeToString(b))
	case isStringType(sqlType):
		return models.String(string(b))
	default:
		return datasource.ValueFromSQL(b)
	}
}

// Ensure Adapter implements Loader at compile time.
var _ datasource.Loader = (*Adapter)(nil)
