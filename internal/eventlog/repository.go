// Package eventlog provides the append-only log of processed events.
//
// One row is appended per admitted event, carrying the processing
// outcome. Rows are never updated or deleted by this service; retention
// is an operational concern handled outside the process.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencasa/casa-core/internal/event"
)

// Pagination bounds for List queries.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Record is one row of the event log.
type Record struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	Device          string    `json:"device"`
	Button          string    `json:"button,omitempty"`
	Action          string    `json:"action"`
	Version         string    `json:"version"`
	Origin          string    `json:"origin,omitempty"`
	Status          string    `json:"status"`
	MatchedCount    int       `json:"matched_count"`
	DispatchedCount int       `json:"dispatched_count"`
	ReceivedAt      time.Time `json:"received_at"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// NewRecord builds a log record from an event and its processing outcome.
func NewRecord(e *event.Event, eventID, status string, matched, dispatched int) *Record {
	return &Record{
		ID:              "evt-" + uuid.NewString(),
		EventID:         eventID,
		Device:          e.Device,
		Button:          e.Button,
		Action:          string(e.Action),
		Version:         e.Version,
		Origin:          e.Origin,
		Status:          status,
		MatchedCount:    matched,
		DispatchedCount: dispatched,
		ReceivedAt:      e.ReceivedAt,
		ProcessedAt:     time.Now().UTC(),
	}
}

// Filter controls which log records to return.
type Filter struct {
	Device string // optional: filter by source device
	Status string // optional: filter by processing status
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains the paginated event log results.
type ListResult struct {
	Events []Record `json:"events"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// Repository defines the interface for event log operations.
type Repository interface {
	Append(ctx context.Context, record *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the event log in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new event log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts a log record. The ID and ProcessedAt are generated if empty.
func (r *SQLiteRepository) Append(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = "evt-" + uuid.NewString()
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, event_id, device, button, action, version, origin,
			status, matched_count, dispatched_count, received_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.EventID, record.Device, record.Button,
		record.Action, record.Version, record.Origin,
		record.Status, record.MatchedCount, record.DispatchedCount,
		record.ReceivedAt.UTC().Format(time.RFC3339Nano),
		record.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting event log record: %w", err)
	}

	return nil
}

// List returns log records matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Device != "" {
		conditions = append(conditions, "device = ?")
		args = append(args, filter.Device)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM events %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting event log records: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, event_id, device, button, action, version, origin,
			status, matched_count, dispatched_count, received_at, processed_at
		 FROM events %s ORDER BY received_at DESC LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying event log: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var receivedAt, processedAt string

		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Device, &rec.Button,
			&rec.Action, &rec.Version, &rec.Origin,
			&rec.Status, &rec.MatchedCount, &rec.DispatchedCount,
			&receivedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning event log record: %w", err)
		}

		if rec.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt); err != nil {
			return nil, fmt.Errorf("parsing received_at %q: %w", receivedAt, err)
		}
		if rec.ProcessedAt, err = time.Parse(time.RFC3339Nano, processedAt); err != nil {
			return nil, fmt.Errorf("parsing processed_at %q: %w", processedAt, err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event log: %w", err)
	}

	if records == nil {
		records = []Record{}
	}

	return &ListResult{
		Events: records,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
