package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-git/go-billy/v6/osfs"
)

// SetupTestDB creates a migrated in-memory SQLite database for testing
func SetupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := Open(context.Background(), DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

// CleanupTestDB closes the test database
func CleanupTestDB(t testing.TB, db *sql.DB) {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// NewTestSQLRepository returns a SQLRepository over a fresh in-memory database
func NewTestSQLRepository(t testing.TB) *SQLRepository {
	t.Helper()
	db := SetupTestDB(t)
	t.Cleanup(func() { CleanupTestDB(t, db) })
	return NewSQLRepository(db, DialectSQLite)
}

// NewTestCSVRepository returns a CSVRepository over a temporary directory
func NewTestCSVRepository(t testing.TB) (*CSVRepository, string) {
	t.Helper()
	dir := t.TempDir()
	return NewCSVRepository(osfs.New(dir)), dir
}

// MustExec executes a SQL statement and fails the test if it errors
func MustExec(t testing.TB, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("failed to exec query: %v", err)
	}
}
