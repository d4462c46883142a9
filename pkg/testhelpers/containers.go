package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/retry"
)

// PostgresImage is the stock PostgreSQL image used for loader integration tests.
const PostgresImage = "postgres:16-alpine"

const (
	dbName     = "test_data"
	dbUser     = "ekaya"
	dbPassword = "test_password"
)

// TestDB is a PostgreSQL container shared by every integration test in a package run.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	postgresOnce sync.Once
	postgresDB   *TestDB
	postgresErr  error
)

// GetTestDB starts the container on first use. Tests are skipped with -short.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	postgresOnce.Do(func() {
		postgresDB, postgresErr = startPostgres(context.Background())
	})
	if postgresErr != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", postgresErr)
	}
	return postgresDB
}

func startPostgres(ctx context.Context) (*TestDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       dbName,
				"POSTGRES_USER":     dbUser,
				"POSTGRES_PASSWORD": dbPassword,
			},
			// Logged once by the init server and again by the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		return nil, fmt.Errorf("resolve postgres endpoint: %w", err)
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", dbUser, dbPassword, endpoint, dbName)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	backoff := &retry.Config{MaxRetries: 10, InitialDelay: 500 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Multiplier: 1}
	if err := retry.Do(ctx, backoff, func() error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres not reachable: %w", err)
	}

	return &TestDB{Container: container, Pool: pool, ConnStr: connStr}, nil
}

// CreateTable executes the given DDL/DML and drops table when the test finishes.
func (db *TestDB) CreateTable(t *testing.T, table string, statements ...string) {
	t.Helper()

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(context.Background(), stmt); err != nil {
			t.Fatalf("setup statement failed: %v\n%s", err, stmt)
		}
	}
	t.Cleanup(func() {
		if _, err := db.Pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table); err != nil {
			t.Logf("failed to drop %s: %v", table, err)
		}
	})
}
