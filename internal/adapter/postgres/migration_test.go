package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/Strob0t/MailWarden/internal/adapter/postgres"
)

// TestMigrationUpDown applies all migrations, rolls them all back, then
// re-applies them so every Down section is exercised.
func TestMigrationUpDown(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	const totalMigrations = 1

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("RunMigrations (up): %v", err)
	}
	assertVersion(t, dsn, totalMigrations)

	if err := postgres.RollbackMigrations(ctx, dsn, totalMigrations); err != nil {
		t.Fatalf("RollbackMigrations (down all): %v", err)
	}
	assertVersion(t, dsn, 0)

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("RunMigrations (re-up): %v", err)
	}
	assertVersion(t, dsn, totalMigrations)
}

func assertVersion(t *testing.T, dsn string, want int64) {
	t.Helper()
	v, err := postgres.MigrationVersion(context.Background(), dsn)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != want {
		t.Fatalf("migration version = %d, want %d", v, want)
	}
}
