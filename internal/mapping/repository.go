package mapping

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/orchestream/internal/infrastructure/database"
)

// SQLiteStore implements Store using the device_mappings table.
//
// SaveAll rewrites the table inside one transaction, matching the
// save-all semantics the Table expects.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store backed by the given database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// LoadAll retrieves every persisted mapping ordered by primary channel.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, name, device_type, channel, aux_channels, created_at, updated_at
		FROM device_mappings
		ORDER BY channel
	`)
	if err != nil {
		return nil, fmt.Errorf("querying mappings: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var mappings []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}
	return mappings, nil
}

// SaveAll replaces the persisted set with the given mappings in one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, mappings []Mapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM device_mappings"); err != nil {
		return fmt.Errorf("clearing mappings: %w", err)
	}

	for _, m := range mappings {
		auxJSON, err := json.Marshal(m.AuxChannels)
		if err != nil {
			return fmt.Errorf("marshalling aux channels for %s: %w", m.DeviceID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO device_mappings
				(device_id, name, device_type, channel, aux_channels, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			m.DeviceID,
			m.Name,
			string(m.Type),
			m.Channel,
			string(auxJSON),
			m.CreatedAt.UTC().Format(time.RFC3339),
			m.UpdatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting mapping %s: %w", m.DeviceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mappings: %w", err)
	}
	return nil
}

// scanMapping scans one device_mappings row.
func scanMapping(rows *sql.Rows) (Mapping, error) {
	var (
		m         Mapping
		dtype     string
		auxJSON   string
		createdAt string
		updatedAt string
	)

	if err := rows.Scan(&m.DeviceID, &m.Name, &dtype, &m.Channel, &auxJSON, &createdAt, &updatedAt); err != nil {
		return Mapping{}, fmt.Errorf("scanning mapping row: %w", err)
	}

	m.Type = DeviceType(dtype)
	if !m.Type.Valid() {
		return Mapping{}, fmt.Errorf("%w: stored type %q for %s", ErrInvalidType, dtype, m.DeviceID)
	}

	if err := json.Unmarshal([]byte(auxJSON), &m.AuxChannels); err != nil {
		return Mapping{}, fmt.Errorf("unmarshalling aux channels for %s: %w", m.DeviceID, err)
	}

	// Timestamp format is controlled by SaveAll
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled

	return m, nil
}
