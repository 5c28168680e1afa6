package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PendingStatus is the decision state of a pending alert.
type PendingStatus string

const (
	PendingStatusPending  PendingStatus = "pending"
	PendingStatusApproved PendingStatus = "approved"
	PendingStatusRejected PendingStatus = "rejected"
)

var (
	// ErrPendingAlertNotFound is returned when a referenced pending alert
	// does not exist.
	ErrPendingAlertNotFound = errors.New("pending alert not found")

	// ErrInvalidState is returned when an operation targets an entity that
	// has already left the state the operation requires, e.g. deciding a
	// pending alert a second time.
	ErrInvalidState = errors.New("invalid state transition")
)

// PendingAlert is an accident detection awaiting a human approve/reject
// decision. Payload holds the JSON-encoded detection result that produced it.
type PendingAlert struct {
	ID              string          `json:"id"`
	StreamID        string          `json:"stream_id"`
	Payload         json.RawMessage `json:"payload"`
	Confidence      float64         `json:"confidence"`
	Severity        string          `json:"severity"`
	Status          PendingStatus   `json:"status"`
	ApprovedBy      *string         `json:"approved_by"`
	DecidedAt       *time.Time      `json:"decided_at"`
	RejectionReason *string         `json:"rejection_reason"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CreatePendingAlert inserts a new pending alert in state "pending".
func (db *DB) CreatePendingAlert(pa *PendingAlert) error {
	if pa.ID == "" {
		pa.ID = uuid.New().String()
	}
	pa.Status = PendingStatusPending
	pa.CreatedAt = time.Now().UTC()

	if len(pa.Payload) == 0 {
		pa.Payload = json.RawMessage("{}")
	}

	query := `
		INSERT INTO pending_alerts (
			id, stream_id, payload, confidence, severity, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(
		query,
		pa.ID,
		pa.StreamID,
		string(pa.Payload),
		pa.Confidence,
		pa.Severity,
		pa.Status,
		pa.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending alert: %w", err)
	}

	return nil
}

// GetPendingAlert retrieves a pending alert by ID.
func (db *DB) GetPendingAlert(id string) (*PendingAlert, error) {
	query := `
		SELECT
			id, stream_id, payload, confidence, severity, status,
			approved_by, decided_at, rejection_reason, created_at
		FROM pending_alerts
		WHERE id = ?
	`

	pa, err := scanPendingAlert(db.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrPendingAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending alert: %w", err)
	}

	return pa, nil
}

// ListPendingAlerts retrieves pending alerts, newest first. An empty status
// returns all decision states.
func (db *DB) ListPendingAlerts(status PendingStatus) ([]PendingAlert, error) {
	query := `
		SELECT
			id, stream_id, payload, confidence, severity, status,
			approved_by, decided_at, rejection_reason, created_at
		FROM pending_alerts
	`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending alerts: %w", err)
	}
	defer rows.Close()

	var alerts []PendingAlert
	for rows.Next() {
		pa, err := scanPendingAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending alert: %w", err)
		}
		alerts = append(alerts, *pa)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending alerts: %w", err)
	}

	return alerts, nil
}

// ApprovePendingAlert transitions a pending alert to "approved", creates the
// final alert, and marks the owning stream, all in one transaction. The
// status transition is a compare-and-set: when two decisions race, exactly
// one sees a row update and the other gets ErrInvalidState.
func (db *DB) ApprovePendingAlert(id, approvedBy string, decidedAt time.Time) (*PendingAlert, *Alert, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE pending_alerts SET
			status = ?,
			approved_by = ?,
			decided_at = ?
		WHERE id = ? AND status = ?
	`, PendingStatusApproved, approvedBy, decidedAt.UTC().Unix(), id, PendingStatusPending)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to approve pending alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil, db.decisionConflict(tx, id)
	}

	pa, err := scanPendingAlert(tx.QueryRow(`
		SELECT
			id, stream_id, payload, confidence, severity, status,
			approved_by, decided_at, rejection_reason, created_at
		FROM pending_alerts
		WHERE id = ?
	`, id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read approved pending alert: %w", err)
	}

	// Copy location and coordinates from the stream as of the decision.
	var location string
	var latitude, longitude *float64
	err = tx.QueryRow(`
		SELECT location, latitude, longitude FROM streams WHERE id = ?
	`, pa.StreamID).Scan(&location, &latitude, &longitude)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read stream for alert: %w", err)
	}

	alert := &Alert{
		ID:          uuid.New().String(),
		StreamID:    pa.StreamID,
		Type:        AlertTypeAccident,
		Status:      AlertStatusSent,
		Severity:    pa.Severity,
		Confidence:  pa.Confidence,
		Location:    location,
		Latitude:    latitude,
		Longitude:   longitude,
		Description: fmt.Sprintf("Accident detected at %s", location),
		Payload:     pa.Payload,
		CreatedAt:   decidedAt.UTC(),
	}
	sentAt := decidedAt.UTC()
	alert.SentAt = &sentAt

	_, err = tx.Exec(`
		INSERT INTO alerts (
			id, stream_id, type, status, severity, confidence,
			location, latitude, longitude, description, payload,
			sent_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		alert.ID,
		alert.StreamID,
		alert.Type,
		alert.Status,
		alert.Severity,
		alert.Confidence,
		alert.Location,
		alert.Latitude,
		alert.Longitude,
		alert.Description,
		string(alert.Payload),
		sentAt.Unix(),
		alert.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create alert: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE streams SET
			status = ?,
			accident_count = accident_count + 1,
			updated_at = ?
		WHERE id = ?
	`, StreamStatusAlert, decidedAt.UTC().Unix(), pa.StreamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mark stream alerted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	return pa, alert, nil
}

// RejectPendingAlert transitions a pending alert to "rejected" with an
// optional reason. No alert is created and the stream is untouched. The
// same compare-and-set guards against racing decisions.
func (db *DB) RejectPendingAlert(id, approvedBy, reason string, decidedAt time.Time) (*PendingAlert, error) {
	reasonVal := sql.NullString{String: reason, Valid: reason != ""}

	result, err := db.DB.Exec(`
		UPDATE pending_alerts SET
			status = ?,
			approved_by = ?,
			decided_at = ?,
			rejection_reason = ?
		WHERE id = ? AND status = ?
	`, PendingStatusRejected, approvedBy, decidedAt.UTC().Unix(), reasonVal, id, PendingStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to reject pending alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, db.decisionConflict(nil, id)
	}

	return db.GetPendingAlert(id)
}

// decisionConflict disambiguates a failed compare-and-set: either the
// pending alert does not exist, or it has already been decided.
func (db *DB) decisionConflict(tx *sql.Tx, id string) error {
	row := func(query string, args ...interface{}) *sql.Row {
		if tx != nil {
			return tx.QueryRow(query, args...)
		}
		return db.DB.QueryRow(query, args...)
	}

	var status PendingStatus
	err := row(`SELECT status FROM pending_alerts WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrPendingAlertNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check pending alert state: %w", err)
	}
	return fmt.Errorf("pending alert is %s: %w", status, ErrInvalidState)
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanPendingAlert(row scannable) (*PendingAlert, error) {
	var pa PendingAlert
	var payload string
	var decidedAtUnix sql.NullInt64
	var createdAtUnix int64

	err := row.Scan(
		&pa.ID,
		&pa.StreamID,
		&payload,
		&pa.Confidence,
		&pa.Severity,
		&pa.Status,
		&pa.ApprovedBy,
		&decidedAtUnix,
		&pa.RejectionReason,
		&createdAtUnix,
	)
	if err != nil {
		return nil, err
	}

	pa.Payload = json.RawMessage(payload)
	if decidedAtUnix.Valid {
		t := time.Unix(decidedAtUnix.Int64, 0).UTC()
		pa.DecidedAt = &t
	}
	pa.CreatedAt = time.Unix(createdAtUnix, 0).UTC()

	return &pa, nil
}
