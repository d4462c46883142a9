package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/config"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/logging"
)

// ApplicationName is reported to the server unless the URL sets one.
const ApplicationName = "ekaya-datacompare"

// poolConfig parses a postgres:// URL into a pool config.
// When running in Docker, localhost is resolved to host.docker.internal
// to allow connections to databases running on the host machine.
func poolConfig(dsn string, opts datasource.Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(config.ResolveDSNForDocker(dsn))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid postgres URL %s: %s",
			apperrors.ErrInvalidConfig, logging.SanitizeConnectionString(dsn), logging.SanitizeError(err))
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	return cfg, nil
}
