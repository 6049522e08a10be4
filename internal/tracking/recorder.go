package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNilDatabase is returned by queries given no database
var ErrNilDatabase = errors.New("database connection is nil")

// Recorder stores events in the history database. After the first write
// failure it disables itself so history problems never break decoding.
type Recorder struct {
	db       *sql.DB
	mutex    sync.Mutex
	disabled bool
}

// NewRecorder creates a Recorder writing to db
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Disabled reports whether a previous write failure switched the recorder off
func (r *Recorder) Disabled() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.disabled
}

// Record inserts event and its anomalies in one transaction and returns the event id
func (r *Recorder) Record(ctx context.Context, event Event) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.disabled {
		return 0, nil
	}

	id, err := r.insert(ctx, event)
	if err != nil {
		slog.Warn("history recording failed, disabling", "error", err, "path", event.Path)
		r.disabled = true
		return 0, err
	}

	slog.Debug("history event recorded",
		"event_id", id,
		"path", event.Path,
		"operation", event.Operation,
		"outcome", event.Outcome,
		"anomalies", len(event.Anomalies))
	return id, nil
}

func (r *Recorder) insert(ctx context.Context, event Event) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO decode_events (timestamp, path, operation, outcome, error_kind, error_message,
			sample_rate, channels, bits_per_sample, data_bytes, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Timestamp.Unix(),
		event.Path,
		event.Operation,
		event.Outcome,
		nullString(event.ErrorKind),
		nullString(event.ErrorMessage),
		event.SampleRate,
		event.Channels,
		event.BitsPerSample,
		event.DataBytes,
		event.ChunkCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	eventID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, a := range event.Anomalies {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO event_anomalies (event_id, kind, tag, byte_offset, detail)
			VALUES (?, ?, ?, ?, ?)`,
			eventID, a.Kind, a.Tag, a.Offset, a.Detail)
		if err != nil {
			return 0, fmt.Errorf("failed to insert anomaly: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit event: %w", err)
	}
	return eventID, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Recent returns events matching filter, newest first, with their anomalies
func Recent(ctx context.Context, db *sql.DB, filter QueryFilter) ([]Event, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	query := `
		SELECT id, timestamp, path, operation, outcome, error_kind, error_message,
			sample_rate, channels, bits_per_sample, data_bytes, chunk_count
		FROM decode_events`

	whereClause, args := filter.BuildWhereClause(time.Now())
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var errorKind, errorMessage sql.NullString
		var sampleRate, channels, bits, dataBytes, chunkCount sql.NullInt64

		if err := rows.Scan(&e.ID, &ts, &e.Path, &e.Operation, &e.Outcome, &errorKind, &errorMessage,
			&sampleRate, &channels, &bits, &dataBytes, &chunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		e.Timestamp = time.Unix(ts, 0)
		e.ErrorKind = errorKind.String
		e.ErrorMessage = errorMessage.String
		e.SampleRate = uint32(sampleRate.Int64)
		e.Channels = uint16(channels.Int64)
		e.BitsPerSample = uint16(bits.Int64)
		e.DataBytes = int(dataBytes.Int64)
		e.ChunkCount = int(chunkCount.Int64)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	rows.Close()

	for i := range events {
		anomalies, err := loadAnomalies(ctx, db, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Anomalies = anomalies
	}

	slog.Debug("loaded history events", "count", len(events), "limit", filter.Limit)
	return events, nil
}

func loadAnomalies(ctx context.Context, db *sql.DB, eventID int64) ([]AnomalyRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT kind, tag, byte_offset, detail FROM event_anomalies WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var out []AnomalyRecord
	for rows.Next() {
		var a AnomalyRecord
		var detail sql.NullString
		if err := rows.Scan(&a.Kind, &a.Tag, &a.Offset, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		a.Detail = detail.String
		out = append(out, a)
	}
	return out, rows.Err()
}
