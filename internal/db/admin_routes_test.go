package db

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestGetDatabaseStats(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	stream := &Stream{Name: "Mission & 5th", URL: "rtsp://cam.example.com/m5"}
	if err := db.CreateStream(stream); err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}

	stats, err := db.GetDatabaseStats()
	if err != nil {
		t.Fatalf("GetDatabaseStats failed: %v", err)
	}

	if stats.TotalSizeMB <= 0 {
		t.Error("Expected positive total size")
	}

	byName := map[string]int64{}
	for _, table := range stats.Tables {
		byName[table.Name] = table.RowCount
	}
	for _, table := range []string{"streams", "pending_alerts", "alerts"} {
		if _, ok := byName[table]; !ok {
			t.Errorf("Expected table %s in stats", table)
		}
	}
	if byName["streams"] != 1 {
		t.Errorf("Expected 1 stream row, got %d", byName["streams"])
	}
}

// TestAttachAdminRoutes verifies the debug routes are registered. tsweb may
// answer 403 for non-local requests; only 404 means a missing route.
func TestAttachAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	httpMux := http.NewServeMux()
	db.AttachAdminRoutes(httpMux)

	t.Run("db-stats endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/db-stats", nil)
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		if w.Code == http.StatusNotFound {
			t.Error("Route /debug/db-stats should be registered, got 404")
		}

		if w.Code == http.StatusOK {
			var stats DatabaseStats
			if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
				t.Errorf("Failed to decode stats response: %v", err)
			}
			if len(stats.Tables) == 0 {
				t.Error("Expected at least one table in stats")
			}
			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got %s", contentType)
			}
		}
	})

	t.Run("backup endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		if w.Code == http.StatusNotFound {
			t.Error("Route /debug/backup should be registered, got 404")
		}

		if w.Code == http.StatusOK {
			if w.Header().Get("Content-Disposition") == "" {
				t.Error("Expected Content-Disposition header for backup download")
			}
		}
	})

	t.Run("tailsql endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		if w.Code == http.StatusNotFound {
			t.Error("Route /debug/tailsql/ should be registered, got 404")
		}
	})
}

// TestBackupEndpoint_FileCleanup verifies backup files do not accumulate in
// the working directory.
func TestBackupEndpoint_FileCleanup(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	})

	// Backups land in the working directory, so point it at the temp dir.
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	httpMux := http.NewServeMux()
	db.AttachAdminRoutes(httpMux)

	beforeFiles, err := filepath.Glob("backup-*.db")
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	w := httptest.NewRecorder()

	httpMux.ServeHTTP(w, req)

	afterFiles, err := filepath.Glob("backup-*.db")
	if err != nil {
		t.Fatalf("Failed to list files after backup: %v", err)
	}

	// The handler removes its backup once streamed; allow at most one
	// straggler from the in-flight request.
	if len(afterFiles) > len(beforeFiles)+1 {
		t.Errorf("Too many backup files created: before=%d, after=%d", len(beforeFiles), len(afterFiles))
	}
}
