package db

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrintMigrateHelp(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("PrintMigrateHelp panicked: %v", r)
		}
	}()

	PrintMigrateHelp()
}

// Test OpenDB as used by the migrate CLI
func TestOpenDB(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if err := db.DB.Ping(); err != nil {
		t.Errorf("Database ping failed: %v", err)
	}
}

func TestHandleMigrateUp(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	// Capture log output
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	handleMigrateUp(database, migrationsFS)

	if buf.String() == "" {
		t.Error("Expected log output from handleMigrateUp")
	}

	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version == 0 {
		t.Error("Expected version > 0 after migration up")
	}
	if dirty {
		t.Error("Expected clean state after migration up")
	}
}

func TestHandleMigrateDown(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	initialVersion, _, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	handleMigrateDown(database, migrationsFS)

	if buf.String() == "" {
		t.Error("Expected log output from handleMigrateDown")
	}

	newVersion, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if newVersion >= initialVersion {
		t.Errorf("Expected version to decrease from %d, got %d", initialVersion, newVersion)
	}
	if dirty {
		t.Error("Expected clean state after migration down")
	}
}

func TestHandleMigrateStatus(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	// handleMigrateStatus prints to stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	handleMigrateStatus(database, migrationsFS)

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)

	output := buf.String()
	if !strings.Contains(output, "Migration Status") {
		t.Error("Expected 'Migration Status' in output")
	}
}

func TestHandleMigrateVersion(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	handleMigrateVersion(database, migrationsFS, "1")

	if buf.String() == "" {
		t.Error("Expected log output from handleMigrateVersion")
	}

	version, _, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}
}

func TestHandleMigrateBaseline(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	handleMigrateBaseline(database, "1")

	if !strings.Contains(buf.String(), "baselined") {
		t.Error("Expected 'baselined' in output")
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}
	status, err := database.GetMigrationStatus(migrationsFS)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if !status["schema_migrations_exists"].(bool) {
		t.Error("Expected schema_migrations table to exist after baseline")
	}
}

func TestBaselineAtVersion_RejectsMigratedDB(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	if err := database.BaselineAtVersion(1); err == nil {
		t.Error("Expected baseline to fail on an already-migrated database")
	}
}

func TestHandleMigrateForce_WithConfirmation(t *testing.T) {
	// handleMigrateForce reads a confirmation from stdin; the underlying
	// MigrateForce is covered in migrate_test.go.
	t.Skip("handleMigrateForce requires interactive stdin input")
}
