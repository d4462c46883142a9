package postgres

import (
	"context"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypePostgres,
			DisplayName: "PostgreSQL",
			Description: "Query or table in PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: func(ctx context.Context, spec datasource.SourceSpec, opts datasource.Options) (datasource.Loader, error) {
			return NewAdapter(ctx, spec, opts)
		},
	})
}
