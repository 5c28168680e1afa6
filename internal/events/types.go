// Package events fans stream lifecycle, detection, and alert notifications
// out to HTTP subscribers over SSE and WebSocket.
package events

import (
	"time"

	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/vision"
)

// EventKind labels what an event reports.
type EventKind string

const (
	KindStreamCreated EventKind = "stream_created"
	KindStreamStarted EventKind = "stream_started"
	KindStreamStopped EventKind = "stream_stopped"
	KindStreamError   EventKind = "stream_error"
	KindDetection     EventKind = "detection"
	KindAlertPending  EventKind = "alert_pending"
	KindAlertApproved EventKind = "alert_approved"
	KindAlertRejected EventKind = "alert_rejected"
)

// Event is one bus notification. Payload pointers are set according to the
// kind; alert_approved carries both the decided pending alert and the final
// alert it produced.
type Event struct {
	Kind     EventKind `json:"kind"`
	StreamID string    `json:"stream_id,omitempty"`
	At       time.Time `json:"at"`

	Stream       *db.Stream              `json:"stream,omitempty"`
	Detection    *vision.DetectionResult `json:"detection,omitempty"`
	PendingAlert *db.PendingAlert        `json:"pending_alert,omitempty"`
	Alert        *db.Alert               `json:"alert,omitempty"`
	Err          string                  `json:"error,omitempty"`
}

// StreamEvent builds a lifecycle event for a stream.
func StreamEvent(kind EventKind, stream *db.Stream) Event {
	return Event{Kind: kind, StreamID: stream.ID, Stream: stream}
}

// DetectionEvent builds a per-tick detection event.
func DetectionEvent(streamID string, det *vision.DetectionResult) Event {
	return Event{Kind: KindDetection, StreamID: streamID, Detection: det}
}

// PendingAlertEvent builds the event announcing a new pending alert.
func PendingAlertEvent(pa *db.PendingAlert) Event {
	return Event{Kind: KindAlertPending, StreamID: pa.StreamID, PendingAlert: pa}
}

// ApprovedEvent builds the event announcing an approval decision, carrying
// the decided pending alert and the alert created from it.
func ApprovedEvent(pa *db.PendingAlert, alert *db.Alert) Event {
	return Event{Kind: KindAlertApproved, StreamID: pa.StreamID, PendingAlert: pa, Alert: alert}
}

// RejectedEvent builds the event announcing a rejection decision.
func RejectedEvent(pa *db.PendingAlert) Event {
	return Event{Kind: KindAlertRejected, StreamID: pa.StreamID, PendingAlert: pa}
}

// ErrorEvent builds the event reporting a failed monitoring loop.
func ErrorEvent(streamID string, err error) Event {
	return Event{Kind: KindStreamError, StreamID: streamID, Err: err.Error()}
}
