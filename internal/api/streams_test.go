package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/collision.report/internal/db"
)

func TestStreamEndpoints(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	var createdID string

	t.Run("POST /api/streams", func(t *testing.T) {
		lat, lng := 37.7890, -122.3960
		reqBody := StreamRequest{
			Name:      "Howard & 1st",
			URL:       "rtsp://cam.example.com/howard-1st",
			Location:  "Howard St & 1st St",
			Latitude:  &lat,
			Longitude: &lng,
		}

		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest("POST", "/api/streams", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Errorf("Expected status 201, got %d", w.Code)
		}

		var created db.Stream
		if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if created.ID == "" {
			t.Error("Expected created stream to have an ID")
		}
		if created.Name != reqBody.Name {
			t.Errorf("Expected name '%s', got '%s'", reqBody.Name, created.Name)
		}
		if created.Status != db.StreamStatusInactive {
			t.Errorf("Expected status 'inactive', got '%s'", created.Status)
		}

		createdID = created.ID
	})

	t.Run("GET /api/streams", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/streams", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var streams []db.Stream
		if err := json.NewDecoder(w.Body).Decode(&streams); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if len(streams) != 1 {
			t.Errorf("Expected 1 stream, got %d", len(streams))
		}
	})

	t.Run("GET /api/streams/{id}", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/streams/"+createdID, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var stream db.Stream
		if err := json.NewDecoder(w.Body).Decode(&stream); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if stream.ID != createdID {
			t.Errorf("Expected ID %s, got %s", createdID, stream.ID)
		}
	})

	t.Run("PUT /api/streams/{id}", func(t *testing.T) {
		updateReq := StreamRequest{
			Name:     "Howard & 1st (repositioned)",
			URL:      "rtsp://cam.example.com/howard-1st-b",
			Location: "Howard St & 1st St",
		}

		body, _ := json.Marshal(updateReq)
		req := httptest.NewRequest("PUT", "/api/streams/"+createdID, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var updated db.Stream
		if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if updated.Name != updateReq.Name {
			t.Errorf("Expected name '%s', got '%s'", updateReq.Name, updated.Name)
		}
		if updated.Latitude != nil {
			t.Error("Expected coordinates to be cleared")
		}
	})

	t.Run("GET /api/streams/{id} not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/streams/no-such-stream", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("POST /api/streams with invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/streams", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("POST /api/streams without name", func(t *testing.T) {
		body, _ := json.Marshal(StreamRequest{URL: "rtsp://cam.example.com/unnamed"})
		req := httptest.NewRequest("POST", "/api/streams", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("POST /api/streams with unsupported scheme", func(t *testing.T) {
		body, _ := json.Marshal(StreamRequest{Name: "FTP Cam", URL: "ftp://cam.example.com/feed"})
		req := httptest.NewRequest("POST", "/api/streams", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("POST /api/streams with latitude only", func(t *testing.T) {
		lat := 37.7890
		body, _ := json.Marshal(StreamRequest{
			Name:     "Half Located",
			URL:      "rtsp://cam.example.com/half",
			Latitude: &lat,
		})
		req := httptest.NewRequest("POST", "/api/streams", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("DELETE /api/streams/{id}", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/streams/"+createdID, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", w.Code)
		}

		req = httptest.NewRequest("GET", "/api/streams/"+createdID, nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 after delete, got %d", w.Code)
		}
	})
}

func TestStreamLifecycleEndpoints(t *testing.T) {
	server, database := setupTestServer(t)
	mux := server.ServeMux()

	stream := createTestStream(t, database, "Folsom & 2nd", 37.7855, -122.3957)

	t.Run("POST /api/streams/{id}/start", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/streams/"+stream.ID+"/start", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var started db.Stream
		if err := json.NewDecoder(w.Body).Decode(&started); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if !started.Monitoring {
			t.Error("Expected stream to be monitoring after start")
		}
		if started.Status != db.StreamStatusActive {
			t.Errorf("Expected status 'active', got '%s'", started.Status)
		}
	})

	t.Run("start again conflicts", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/streams/"+stream.ID+"/start", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", w.Code)
		}
	})

	t.Run("POST /api/streams/{id}/stop", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/streams/"+stream.ID+"/stop", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var stopped db.Stream
		if err := json.NewDecoder(w.Body).Decode(&stopped); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if stopped.Monitoring {
			t.Error("Expected stream to stop monitoring")
		}
		if stopped.Status != db.StreamStatusInactive {
			t.Errorf("Expected status 'inactive', got '%s'", stopped.Status)
		}
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/streams/"+stream.ID+"/stop", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("start missing stream", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/streams/no-such-stream/start", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestNearbyStreams(t *testing.T) {
	server, database := setupTestServer(t)
	mux := server.ServeMux()

	// ~100m east of the query point, ~5km north, and one with no coordinates.
	createTestStream(t, database, "Close", 37.7890, -122.3949)
	createTestStream(t, database, "Far", 37.8350, -122.3960)
	if err := database.CreateStream(&db.Stream{Name: "Unlocated", URL: "rtsp://cam.example.com/unlocated"}); err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}

	t.Run("default radius", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/streams/nearby?lat=37.7890&lng=-122.3960", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var nearby []nearbyStream
		if err := json.NewDecoder(w.Body).Decode(&nearby); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if len(nearby) != 1 {
			t.Fatalf("Expected 1 nearby stream, got %d", len(nearby))
		}
		if nearby[0].Name != "Close" {
			t.Errorf("Expected 'Close', got '%s'", nearby[0].Name)
		}
		if nearby[0].DistanceM <= 0 || nearby[0].DistanceM > 200 {
			t.Errorf("Expected distance within (0, 200]m, got %f", nearby[0].DistanceM)
		}
	})

	t.Run("wide radius", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/streams/nearby?lat=37.7890&lng=-122.3960&radius_m=10000", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var nearby []nearbyStream
		if err := json.NewDecoder(w.Body).Decode(&nearby); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if len(nearby) != 2 {
			t.Errorf("Expected 2 nearby streams, got %d", len(nearby))
		}
	})

	t.Run("missing lat", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/streams/nearby?lng=-122.3960", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid radius", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/streams/nearby?lat=37.7890&lng=-122.3960&radius_m=-5", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}
