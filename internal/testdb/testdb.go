// Package testdb provides utilities for database integration testing:
// environment detection, schema setup through the project migrations, and
// transaction-based test isolation.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
)

// TestTimeout bounds individual database operations during test setup.
const TestTimeout = 5 * time.Second

// databaseURLEnvVars are checked in order for a test database connection
// string.
var databaseURLEnvVars = []string{"DATABASE_URL", "SCRAPER_TEST_DB_URL", "SCRAPER_DATABASE_URL"}

// IsIntegrationTestEnvironment returns true if a database URL environment
// variable is set, indicating that integration tests can run.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// GetTestDatabaseURL returns the first configured test database URL, or an
// empty string when none is set.
func GetTestDatabaseURL() string {
	for _, envVar := range databaseURLEnvVars {
		if url := os.Getenv(envVar); url != "" {
			return url
		}
	}
	return ""
}

// MustGetTestDatabaseURL returns the test database URL or panics. Call only
// after IsIntegrationTestEnvironment has returned true.
func MustGetTestDatabaseURL() string {
	url := GetTestDatabaseURL()
	if url == "" {
		panic("no test database URL configured; set DATABASE_URL")
	}
	return url
}

// SetupTestDatabaseSchema applies the project migrations to the given
// database so tests run against the real schema.
func SetupTestDatabaseSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed before migrations: %w", err)
	}

	migrationsDir, err := findMigrationsDir()
	if err != nil {
		return err
	}

	goose.SetTableName("schema_migrations")
	goose.SetBaseFS(os.DirFS(migrationsDir))
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// WithTx runs the provided function within a database transaction that is
// rolled back afterwards, so tests can modify data without persisting it and
// run in parallel against a shared database.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// findMigrationsDir walks up from the working directory until it finds the
// migrations directory next to go.mod.
func findMigrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			migrationsDir := filepath.Join(dir, "migrations")
			if _, err := os.Stat(migrationsDir); err != nil {
				return "", fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
			}
			return migrationsDir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("project root with go.mod not found")
		}
		dir = parent
	}
}
