package events

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/collision.report/internal/monitoring"
)

// upgrader upgrades HTTP connections to WebSocket. CheckOrigin allows all
// origins; the daemon fronts internal dashboards only.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleTail streams every event to the client as Server-Sent Events.
func (b *Bus) HandleTail(w http.ResponseWriter, r *http.Request) {
	b.serveTail(w, r, "")
}

// HandleStreamTail streams one stream's events as Server-Sent Events. The
// route pattern must carry an {id} segment.
func (b *Bus) HandleStreamTail(w http.ResponseWriter, r *http.Request) {
	b.serveTail(w, r, r.PathValue("id"))
}

func (b *Bus) serveTail(w http.ResponseWriter, r *http.Request, streamID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	var id string
	var ch <-chan Event
	if streamID == "" {
		id, ch = b.SubscribeGlobal()
	} else {
		id, ch = b.SubscribeStream(streamID)
	}
	defer b.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				monitoring.Logf("failed to encode event for SSE: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// HandleWebSocket upgrades the connection and streams events as JSON text
// messages. An optional ?stream= query scopes the feed to one stream.
func (b *Bus) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var id string
	var ch <-chan Event
	if streamID := r.URL.Query().Get("stream"); streamID != "" {
		id, ch = b.SubscribeStream(streamID)
	} else {
		id, ch = b.SubscribeGlobal()
	}
	defer b.Unsubscribe(id)

	// Reader goroutine: the client sends nothing meaningful, but reading is
	// what detects disconnects and close frames.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-readerDone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
