package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/logging"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/retry"
)

// Source types shipped with the tool.
const (
	TypeCSV      = "csv"
	TypeJSONL    = "jsonl"
	TypePostgres = "postgres"
	TypeMSSQL    = "mssql"
)

// SourceSpec identifies one side of a comparison.
type SourceSpec struct {
	// Location is a file path or a database URL.
	Location string
	// Type forces a source type; empty means Detect.
	Type string
	// Name labels the resulting table; defaults to Location with credentials removed.
	Name string

	// Query is the SQL to run, or a bare table name, for database sources.
	Query string

	// Delimiter for CSV sources; empty means ',' (or tab for .tsv files).
	Delimiter string
	// NullToken, when set, marks CSV cells that load as absent values.
	NullToken string
}

// Options carries the connection settings shared by all loaders.
type Options struct {
	ConnectTimeout time.Duration
	MaxConns       int32
	Retry          *retry.Config
	Logger         *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Loader materializes one source into a Table.
// Each implementation owns its resources and must be closed when done.
type Loader interface {
	Load(ctx context.Context) (*models.Table, error)
	Close() error
}

// Open detects the source type when needed, builds its loader, and loads the table.
func Open(ctx context.Context, spec SourceSpec, opts Options) (*models.Table, error) {
	logger := opts.logger()

	if spec.Type == "" {
		detected, err := Detect(spec.Location)
		if err != nil {
			return nil, err
		}
		spec.Type = detected
	}
	if spec.Name == "" {
		spec.Name = logging.SanitizeConnectionString(spec.Location)
	}

	if !IsRegistered(spec.Type) {
		return nil, fmt.Errorf("%w: source type %q is not available (registered: %s)",
			apperrors.ErrUnsupportedSource, spec.Type, strings.Join(registeredTypes(), ", "))
	}

	start := time.Now()
	loader, err := GetFactory(spec.Type)(ctx, spec, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := loader.Close(); err != nil {
			logger.Warn("Failed to close source", logging.Source("source", spec.Location), logging.Err(err))
		}
	}()

	table, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	logger.Debug("Source loaded",
		logging.Source("source", spec.Location),
		zap.String("type", spec.Type),
		zap.Int("columns", len(table.Columns)),
		zap.Int("rows", table.RowCount()),
		zap.Duration("elapsed", time.Since(start)))
	return table, nil
}
