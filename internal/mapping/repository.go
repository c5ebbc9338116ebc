package mapping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for mapping persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a mapping by its unique identifier.
	// Returns ErrMappingNotFound if the mapping does not exist.
	GetByID(ctx context.Context, id string) (*Mapping, error)

	// List retrieves all mappings.
	List(ctx context.Context) ([]Mapping, error)

	// Create inserts a new mapping.
	// Returns ErrMappingExists if a mapping with the same ID already exists.
	Create(ctx context.Context, m *Mapping) error

	// Update modifies an existing mapping.
	// Returns ErrMappingNotFound if the mapping does not exist.
	Update(ctx context.Context, m *Mapping) error

	// Delete removes a mapping by ID.
	// Returns ErrMappingNotFound if the mapping does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const mappingColumns = `id, device, button, action, target_type, target_id,
	command, parameters, priority, enabled, description, created_at, updated_at`

// GetByID retrieves a mapping by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings WHERE id = ?`

	m, err := scanMapping(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, fmt.Errorf("querying mapping by id: %w", err)
	}
	return m, nil
}

// List retrieves all mappings ordered by priority.
func (r *SQLiteRepository) List(ctx context.Context) ([]Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings ORDER BY priority, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying mappings: %w", err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		mappings = append(mappings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}

	return mappings, nil
}

// Create inserts a new mapping.
func (r *SQLiteRepository) Create(ctx context.Context, m *Mapping) error {
	paramsJSON, err := json.Marshal(m.Parameters)
	if err != nil {
		return fmt.Errorf("marshalling parameters: %w", err)
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	query := `
		INSERT INTO mappings (` + mappingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		m.ID,
		m.Device,
		m.Button,
		m.Action,
		string(m.TargetType),
		m.TargetID,
		m.Command,
		string(paramsJSON),
		m.Priority,
		boolToInt(m.Enabled),
		m.Description,
		m.CreatedAt.Format(time.RFC3339),
		m.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrMappingExists
		}
		return fmt.Errorf("inserting mapping: %w", err)
	}

	return nil
}

// Update modifies an existing mapping.
func (r *SQLiteRepository) Update(ctx context.Context, m *Mapping) error {
	paramsJSON, err := json.Marshal(m.Parameters)
	if err != nil {
		return fmt.Errorf("marshalling parameters: %w", err)
	}

	m.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE mappings SET
			device = ?, button = ?, action = ?, target_type = ?, target_id = ?,
			command = ?, parameters = ?, priority = ?, enabled = ?,
			description = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		m.Device,
		m.Button,
		m.Action,
		string(m.TargetType),
		m.TargetID,
		m.Command,
		string(paramsJSON),
		m.Priority,
		boolToInt(m.Enabled),
		m.Description,
		m.UpdatedAt.Format(time.RFC3339),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating mapping: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMappingNotFound
	}

	return nil
}

// Delete removes a mapping by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM mappings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMappingNotFound
	}

	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMapping scans a row or rows result into a Mapping.
func scanMapping(scanner rowScanner) (*Mapping, error) {
	var (
		m          Mapping
		targetType string
		paramsJSON string
		enabled    int
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&m.ID,
		&m.Device,
		&m.Button,
		&m.Action,
		&targetType,
		&m.TargetID,
		&m.Command,
		&paramsJSON,
		&m.Priority,
		&enabled,
		&m.Description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.TargetType = TargetType(targetType)
	m.Enabled = enabled != 0

	if paramsJSON != "" && paramsJSON != "null" {
		if err := json.Unmarshal([]byte(paramsJSON), &m.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshalling parameters: %w", err)
		}
	}

	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &m, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
