package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStreamsChart(t *testing.T) {
	server, database := setupTestServer(t)
	mux := server.ServeMux()

	createTestStream(t, database, "Howard & 1st", 37.7890, -122.3960)
	createTestStream(t, database, "Folsom & 2nd", 37.7855, -122.3957)

	req := httptest.NewRequest("GET", "/monitor/streams", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected text/html content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Accidents by Stream") {
		t.Error("Expected chart page to contain the title")
	}
}

func TestAlertsChart(t *testing.T) {
	server, database := setupTestServer(t)
	mux := server.ServeMux()

	stream := createTestStream(t, database, "Mission & 5th", 37.7830, -122.4075)
	seedPendingAlert(t, database, stream.ID)

	req := httptest.NewRequest("GET", "/monitor/alerts", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected text/html content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Pending Alert Confidence") {
		t.Error("Expected chart page to contain the title")
	}
}

func TestAlertsChart_Empty(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	req := httptest.NewRequest("GET", "/monitor/alerts", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with no data, got %d", w.Code)
	}
}
