package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/collision.report/internal/framegeo"
)

// StreamStatus is the lifecycle state of a camera stream.
type StreamStatus string

const (
	StreamStatusInactive StreamStatus = "inactive"
	StreamStatusActive   StreamStatus = "active"
	StreamStatusError    StreamStatus = "error"
	StreamStatusAlert    StreamStatus = "alert"
)

// ErrStreamNotFound is returned when a referenced stream does not exist.
var ErrStreamNotFound = errors.New("stream not found")

// Stream represents a camera feed under (potential) monitoring.
// Monitoring reports whether a polling loop should be running for the
// stream; Status "active" without Monitoring means the loop is winding down.
type Stream struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	URL             string       `json:"url"`
	Location        string       `json:"location"`
	Latitude        *float64     `json:"latitude"`
	Longitude       *float64     `json:"longitude"`
	Status          StreamStatus `json:"status"`
	Monitoring      bool         `json:"monitoring"`
	LastProcessedAt *time.Time   `json:"last_processed_at"`
	AccidentCount   int          `json:"accident_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// CreateStream inserts a new stream. A missing ID is assigned a fresh UUID
// and a missing status defaults to inactive.
func (db *DB) CreateStream(stream *Stream) error {
	if stream.ID == "" {
		stream.ID = uuid.New().String()
	}
	if stream.Status == "" {
		stream.Status = StreamStatusInactive
	}

	now := time.Now().UTC()
	stream.CreatedAt = now
	stream.UpdatedAt = now

	query := `
		INSERT INTO streams (
			id, name, url, location, latitude, longitude,
			status, monitoring, accident_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	monitoringInt := 0
	if stream.Monitoring {
		monitoringInt = 1
	}

	_, err := db.DB.Exec(
		query,
		stream.ID,
		stream.Name,
		stream.URL,
		stream.Location,
		stream.Latitude,
		stream.Longitude,
		stream.Status,
		monitoringInt,
		stream.AccidentCount,
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// GetStream retrieves a stream by ID.
func (db *DB) GetStream(id string) (*Stream, error) {
	query := `
		SELECT
			id, name, url, location, latitude, longitude,
			status, monitoring, last_processed_at, accident_count,
			created_at, updated_at
		FROM streams
		WHERE id = ?
	`

	var stream Stream
	var monitoringInt int
	var lastProcessedUnix sql.NullInt64
	var createdAtUnix, updatedAtUnix int64

	err := db.DB.QueryRow(query, id).Scan(
		&stream.ID,
		&stream.Name,
		&stream.URL,
		&stream.Location,
		&stream.Latitude,
		&stream.Longitude,
		&stream.Status,
		&monitoringInt,
		&lastProcessedUnix,
		&stream.AccidentCount,
		&createdAtUnix,
		&updatedAtUnix,
	)

	if err == sql.ErrNoRows {
		return nil, ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}

	stream.Monitoring = monitoringInt == 1
	if lastProcessedUnix.Valid {
		t := time.Unix(lastProcessedUnix.Int64, 0).UTC()
		stream.LastProcessedAt = &t
	}
	stream.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	stream.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()

	return &stream, nil
}

// GetAllStreams retrieves all streams ordered by name.
func (db *DB) GetAllStreams() ([]Stream, error) {
	query := `
		SELECT
			id, name, url, location, latitude, longitude,
			status, monitoring, last_processed_at, accident_count,
			created_at, updated_at
		FROM streams
		ORDER BY name ASC
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query streams: %w", err)
	}
	defer rows.Close()

	var streams []Stream
	for rows.Next() {
		var stream Stream
		var monitoringInt int
		var lastProcessedUnix sql.NullInt64
		var createdAtUnix, updatedAtUnix int64

		err := rows.Scan(
			&stream.ID,
			&stream.Name,
			&stream.URL,
			&stream.Location,
			&stream.Latitude,
			&stream.Longitude,
			&stream.Status,
			&monitoringInt,
			&lastProcessedUnix,
			&stream.AccidentCount,
			&createdAtUnix,
			&updatedAtUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stream: %w", err)
		}

		stream.Monitoring = monitoringInt == 1
		if lastProcessedUnix.Valid {
			t := time.Unix(lastProcessedUnix.Int64, 0).UTC()
			stream.LastProcessedAt = &t
		}
		stream.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		stream.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()

		streams = append(streams, stream)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating streams: %w", err)
	}

	return streams, nil
}

// UpdateStream updates a stream's descriptive fields (name, URL, location,
// coordinates). Lifecycle fields are owned by UpdateStreamState and the
// decision transaction.
func (db *DB) UpdateStream(stream *Stream) error {
	query := `
		UPDATE streams SET
			name = ?,
			url = ?,
			location = ?,
			latitude = ?,
			longitude = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := db.DB.Exec(
		query,
		stream.Name,
		stream.URL,
		stream.Location,
		stream.Latitude,
		stream.Longitude,
		time.Now().UTC().Unix(),
		stream.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrStreamNotFound
	}

	return nil
}

// UpdateStreamState sets a stream's status and monitoring flag together.
// The two always change as a pair so a loop can't observe "active" with
// monitoring off at start, or the reverse at stop.
func (db *DB) UpdateStreamState(id string, status StreamStatus, monitoring bool) error {
	query := `
		UPDATE streams SET
			status = ?,
			monitoring = ?,
			updated_at = ?
		WHERE id = ?
	`

	monitoringInt := 0
	if monitoring {
		monitoringInt = 1
	}

	result, err := db.DB.Exec(query, status, monitoringInt, time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update stream state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrStreamNotFound
	}

	return nil
}

// MarkStreamProcessed records the time of the latest completed analysis tick.
func (db *DB) MarkStreamProcessed(id string, processedAt time.Time) error {
	query := `
		UPDATE streams SET
			last_processed_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := db.DB.Exec(query, processedAt.UTC().Unix(), time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark stream processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrStreamNotFound
	}

	return nil
}

// DeleteStream removes a stream. Associated pending alerts and alerts are
// removed by the foreign-key cascade.
func (db *DB) DeleteStream(id string) error {
	query := `DELETE FROM streams WHERE id = ?`

	result, err := db.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete stream: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrStreamNotFound
	}

	return nil
}

// ListStreamsNear returns streams with coordinates within radiusM meters of
// the given point. The stream table is small so the great-circle filter runs
// in Go rather than SQL.
func (db *DB) ListStreamsNear(lat, lng, radiusM float64) ([]Stream, error) {
	streams, err := db.GetAllStreams()
	if err != nil {
		return nil, err
	}

	var nearby []Stream
	for _, s := range streams {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		if framegeo.EarthDistanceM(lat, lng, *s.Latitude, *s.Longitude) <= radiusM {
			nearby = append(nearby, s)
		}
	}

	return nearby, nil
}
