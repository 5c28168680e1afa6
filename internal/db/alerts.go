package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AlertType categorizes what an alert reports.
type AlertType string

const (
	AlertTypeAccident   AlertType = "accident"
	AlertTypeTrafficJam AlertType = "traffic_jam"
	AlertTypeWeather    AlertType = "weather"
	AlertTypeSystem     AlertType = "system"
)

// AlertStatus is the delivery lifecycle of an alert. Alerts created through
// approval start at "sent"; responders move them to "acknowledged" and then
// "resolved".
type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "pending"
	AlertStatusSent         AlertStatus = "sent"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// ErrAlertNotFound is returned when a referenced alert does not exist.
var ErrAlertNotFound = errors.New("alert not found")

// Alert is a confirmed incident notification.
type Alert struct {
	ID             string          `json:"id"`
	StreamID       string          `json:"stream_id"`
	Type           AlertType       `json:"type"`
	Status         AlertStatus     `json:"status"`
	Severity       string          `json:"severity"`
	Confidence     float64         `json:"confidence"`
	Location       string          `json:"location"`
	Latitude       *float64        `json:"latitude"`
	Longitude      *float64        `json:"longitude"`
	Description    string          `json:"description"`
	Payload        json.RawMessage `json:"payload"`
	SentAt         *time.Time      `json:"sent_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at"`
	ResolvedAt     *time.Time      `json:"resolved_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// GetAlert retrieves an alert by ID.
func (db *DB) GetAlert(id string) (*Alert, error) {
	query := `
		SELECT
			id, stream_id, type, status, severity, confidence,
			location, latitude, longitude, description, payload,
			sent_at, acknowledged_at, resolved_at, created_at
		FROM alerts
		WHERE id = ?
	`

	alert, err := scanAlert(db.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return alert, nil
}

// ListAlerts retrieves alerts, newest first, optionally filtered by stream
// and status. Empty filters match everything.
func (db *DB) ListAlerts(streamID string, status AlertStatus) ([]Alert, error) {
	query := `
		SELECT
			id, stream_id, type, status, severity, confidence,
			location, latitude, longitude, description, payload,
			sent_at, acknowledged_at, resolved_at, created_at
		FROM alerts
	`
	var conds []string
	var args []interface{}
	if streamID != "" {
		conds = append(conds, "stream_id = ?")
		args = append(args, streamID)
	}
	if status != "" {
		conds = append(conds, "status = ?")
		args = append(args, status)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// AcknowledgeAlert moves a sent alert to "acknowledged". Only alerts in
// state "sent" may be acknowledged.
func (db *DB) AcknowledgeAlert(id string, ackedAt time.Time) (*Alert, error) {
	result, err := db.DB.Exec(`
		UPDATE alerts SET
			status = ?,
			acknowledged_at = ?
		WHERE id = ? AND status = ?
	`, AlertStatusAcknowledged, ackedAt.UTC().Unix(), id, AlertStatusSent)
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, db.alertTransitionConflict(id)
	}

	return db.GetAlert(id)
}

// ResolveAlert moves a sent or acknowledged alert to "resolved".
func (db *DB) ResolveAlert(id string, resolvedAt time.Time) (*Alert, error) {
	result, err := db.DB.Exec(`
		UPDATE alerts SET
			status = ?,
			resolved_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, AlertStatusResolved, resolvedAt.UTC().Unix(), id, AlertStatusSent, AlertStatusAcknowledged)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, db.alertTransitionConflict(id)
	}

	return db.GetAlert(id)
}

func (db *DB) alertTransitionConflict(id string) error {
	var status AlertStatus
	err := db.DB.QueryRow(`SELECT status FROM alerts WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrAlertNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check alert state: %w", err)
	}
	return fmt.Errorf("alert is %s: %w", status, ErrInvalidState)
}

func scanAlert(row scannable) (*Alert, error) {
	var alert Alert
	var payload string
	var sentAtUnix, ackedAtUnix, resolvedAtUnix sql.NullInt64
	var createdAtUnix int64

	err := row.Scan(
		&alert.ID,
		&alert.StreamID,
		&alert.Type,
		&alert.Status,
		&alert.Severity,
		&alert.Confidence,
		&alert.Location,
		&alert.Latitude,
		&alert.Longitude,
		&alert.Description,
		&payload,
		&sentAtUnix,
		&ackedAtUnix,
		&resolvedAtUnix,
		&createdAtUnix,
	)
	if err != nil {
		return nil, err
	}

	alert.Payload = json.RawMessage(payload)
	if sentAtUnix.Valid {
		t := time.Unix(sentAtUnix.Int64, 0).UTC()
		alert.SentAt = &t
	}
	if ackedAtUnix.Valid {
		t := time.Unix(ackedAtUnix.Int64, 0).UTC()
		alert.AcknowledgedAt = &t
	}
	if resolvedAtUnix.Valid {
		t := time.Unix(resolvedAtUnix.Int64, 0).UTC()
		alert.ResolvedAt = &t
	}
	alert.CreatedAt = time.Unix(createdAtUnix, 0).UTC()

	return &alert, nil
}
