// Package alerting owns the pending-alert decision flow: detections that
// look like accidents become pending alerts, and a human decision promotes
// them to dispatched alerts or retires them with a reason. All state changes
// are announced on the event bus after they are durable.
package alerting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/events"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/timeutil"
	"github.com/banshee-data/collision.report/internal/vision"
)

// Machine coordinates pending-alert transitions between the store and the
// event bus. The decision methods are safe to call concurrently; the store's
// compare-and-set guarantees at most one decision wins per pending alert.
type Machine struct {
	db  *db.DB
	bus *events.Bus

	// Clock supplies decision timestamps and is replaceable in tests.
	Clock timeutil.Clock
}

// NewMachine constructs a Machine over the given store and bus.
func NewMachine(database *db.DB, bus *events.Bus) *Machine {
	return &Machine{
		db:    database,
		bus:   bus,
		Clock: timeutil.RealClock{},
	}
}

// CreatePendingAlert records a detection as a pending alert awaiting human
// review and broadcasts alert_pending. The full detection result is kept as
// the payload so reviewers see exactly what the analyzer saw.
func (m *Machine) CreatePendingAlert(ctx context.Context, streamID string, det vision.DetectionResult) (*db.PendingAlert, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if _, err := m.db.GetStream(streamID); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(det)
	if err != nil {
		return nil, fmt.Errorf("failed to encode detection payload: %w", err)
	}

	pa := &db.PendingAlert{
		StreamID:   streamID,
		Payload:    payload,
		Confidence: det.Confidence,
		Severity:   string(det.MaxSeverity()),
	}
	if err := m.db.CreatePendingAlert(pa); err != nil {
		return nil, err
	}

	monitoring.Debugf("pending alert %s created for stream %s (severity %s, confidence %.2f)",
		pa.ID, streamID, pa.Severity, pa.Confidence)
	m.bus.Publish(events.PendingAlertEvent(pa))

	return pa, nil
}

// Approve promotes a pending alert to a dispatched alert. The store performs
// the transition, the alert insert, and the stream bookkeeping in one
// transaction; alert_approved is broadcast only after that commits.
func (m *Machine) Approve(ctx context.Context, id, approvedBy string) (*db.PendingAlert, *db.Alert, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	pa, alert, err := m.db.ApprovePendingAlert(id, approvedBy, m.Clock.Now())
	if err != nil {
		return nil, nil, err
	}

	monitoring.Logf("pending alert %s approved by %s, alert %s dispatched", pa.ID, approvedBy, alert.ID)
	m.bus.Publish(events.ApprovedEvent(pa, alert))

	return pa, alert, nil
}

// Reject retires a pending alert without dispatching anything. The reason is
// optional and stored verbatim for later triage.
func (m *Machine) Reject(ctx context.Context, id, approvedBy, reason string) (*db.PendingAlert, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	pa, err := m.db.RejectPendingAlert(id, approvedBy, reason, m.Clock.Now())
	if err != nil {
		return nil, err
	}

	monitoring.Logf("pending alert %s rejected by %s", pa.ID, approvedBy)
	m.bus.Publish(events.RejectedEvent(pa))

	return pa, nil
}
