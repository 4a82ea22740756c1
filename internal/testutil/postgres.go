// Package testutil provides shared test utilities for PostgreSQL integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"coachspine/internal/db"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container *postgres.PostgresContainer
	DB        *sql.DB
}

// SetupPostgres creates a new PostgreSQL container for testing and applies
// every migration in internal/db/migrations. The container and connection
// are torn down automatically when the test completes.
func SetupPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()

	// the raw-metric migration creates a hypertable, so a plain postgres
	// image cannot apply the schema
	container, err := postgres.Run(ctx,
		"timescale/timescaledb:2.17.2-pg16",
		postgres.WithDatabase("coachspine_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	database, err := sql.Open("pgx", connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.RunMigrations(database); err != nil {
		database.Close()
		container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	pc := &PostgresContainer{
		container: container,
		DB:        database,
	}

	t.Cleanup(func() {
		pc.Close()
	})

	return pc
}

// Close terminates the PostgreSQL container and closes the database connection.
func (pc *PostgresContainer) Close() {
	if pc.DB != nil {
		pc.DB.Close()
	}
	if pc.container != nil {
		pc.container.Terminate(context.Background())
	}
}

// ClearTables truncates every table owned by a user for test isolation.
// Reference/lookup data has no seeded rows in this schema, so nothing is
// preserved across truncation.
func (pc *PostgresContainer) ClearTables(ctx context.Context) error {
	tables := []string{
		"chat_messages",
		"chat_sessions",
		"sync_metadata",
		"user_preferences",
		"user_goals",
		"workout_cache",
		"health_weekly_summary",
		"health_metric_daily",
		"health_metric_raw",
		"nutrition_day",
		"users",
	}

	for _, table := range tables {
		_, err := pc.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	return nil
}
