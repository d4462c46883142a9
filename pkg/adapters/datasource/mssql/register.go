package mssql

import (
	"context"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypeMSSQL,
			DisplayName: "Microsoft SQL Server",
			Description: "Query or table in SQL Server 2019+, Azure SQL Database",
		},
		Factory: func(ctx context.Context, spec datasource.SourceSpec, opts datasource.Options) (datasource.Loader, error) {
			return NewAdapter(ctx, spec, opts)
		},
	})
}
