// This file validates the migration SQL files to catch schema mismatches
// early, without needing a live database.
package database

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// migrationsDir returns the absolute path to migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(migrationsDir(t), name))
	if err != nil {
		t.Fatalf("reading migration %s: %v", name, err)
	}
	return string(data)
}

// TestMigrationsPairUpAndDown verifies every up migration has a matching
// down migration, as golang-migrate requires for rollback.
func TestMigrationsPairUpAndDown(t *testing.T) {
	entries, err := os.ReadDir(migrationsDir(t))
	if err != nil {
		t.Fatalf("reading migrations dir: %v", err)
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations dir: %s", name)
		}
	}

	if len(ups) == 0 {
		t.Fatal("no up migrations found")
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %s has no down counterpart", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("down migration %s has no up counterpart", base)
		}
	}
}

// TestAccountsSchemaColumns verifies the accounts table carries every column
// the repository layer reads and writes.
func TestAccountsSchemaColumns(t *testing.T) {
	sql := strings.ToLower(readMigration(t, "0001_create_accounts.up.sql"))

	if !strings.Contains(sql, "create table") || !strings.Contains(sql, "accounts") {
		t.Fatal("expected CREATE TABLE accounts")
	}

	for _, col := range []string{
		"id",
		"username",
		"email",
		"password_digest",
		"is_active",
		"failed_attempts",
		"locked_until",
		"last_login",
		"created_at",
	} {
		if !strings.Contains(sql, col) {
			t.Errorf("accounts schema is missing column %s", col)
		}
	}

	// Uniqueness of both identifiers backs the duplicate checks and the
	// insert-race handling.
	if strings.Count(sql, "unique") < 2 {
		t.Error("expected unique constraints on username and email")
	}
}

func TestAccountsDownDropsTable(t *testing.T) {
	sql := strings.ToLower(readMigration(t, "0001_create_accounts.down.sql"))
	if !strings.Contains(sql, "drop table") {
		t.Error("down migration must drop the accounts table")
	}
}
