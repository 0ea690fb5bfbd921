package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SyncMetadataRepository handles sync metadata and sync log operations
type SyncMetadataRepository struct {
	db *DB
}

// NewSyncMetadataRepository creates a new sync metadata repository
func NewSyncMetadataRepository(db *DB) *SyncMetadataRepository {
	return &SyncMetadataRepository{db: db}
}

// GetLastSyncTime returns the last sync time for key, or the zero time if
// it never ran.
func (r *SyncMetadataRepository) GetLastSyncTime(key string) (time.Time, error) {
	value, err := r.GetValue("last_" + key)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		slog.Warn("Failed to parse sync timestamp, treating as never synced",
			"key", key,
			"value", value,
			"error", err,
		)
		return time.Time{}, nil
	}

	return t, nil
}

// SetLastSyncTime records the last sync time for key
func (r *SyncMetadataRepository) SetLastSyncTime(key string, t time.Time) error {
	if err := r.SetValue("last_"+key, t.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to set last sync time: %w", err)
	}
	return nil
}

// GetValue retrieves a generic value, "" when unset.
func (r *SyncMetadataRepository) GetValue(key string) (string, error) {
	var value string
	err := r.db.QueryRow(r.db.rebind(`SELECT value FROM sync_metadata WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get sync metadata value: %w", err)
	}

	return value, nil
}

// SetValue sets a generic value
func (r *SyncMetadataRepository) SetValue(key, value string) error {
	_, err := r.db.Exec(r.db.rebind(`
		INSERT INTO sync_metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`), key, value)
	if err != nil {
		return fmt.Errorf("failed to set sync metadata value: %w", err)
	}
	return nil
}

// StartSyncLog opens a sync log record and returns its id.
func (r *SyncMetadataRepository) StartSyncLog(syncType string) (int64, error) {
	var id int64
	err := r.db.QueryRow(r.db.rebind(`
		INSERT INTO sync_log (sync_type, started_at) VALUES (?, CURRENT_TIMESTAMP) RETURNING id
	`), syncType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start sync log: %w", err)
	}
	return id, nil
}

// CompleteSyncLog closes a sync log record. syncErr, when non-nil, is
// stored as the error message.
func (r *SyncMetadataRepository) CompleteSyncLog(id int64, processed, written int, syncErr error) error {
	var message sql.NullString
	if syncErr != nil {
		message = sql.NullString{String: syncErr.Error(), Valid: true}
	}

	_, err := r.db.Exec(r.db.rebind(`
		UPDATE sync_log
		SET completed_at = CURRENT_TIMESTAMP, records_processed = ?, records_written = ?, error_message = ?
		WHERE id = ?
	`), processed, written, message, id)
	if err != nil {
		return fmt.Errorf("failed to complete sync log: %w", err)
	}
	return nil
}

// SyncLogEntry is one row of the sync log.
type SyncLogEntry struct {
	ID               int64
	SyncType         string
	Completed        bool
	RecordsProcessed int
	RecordsWritten   int
	ErrorMessage     string
}

// LastSyncLog returns the most recent sync log record of syncType, or nil.
func (r *SyncMetadataRepository) LastSyncLog(syncType string) (*SyncLogEntry, error) {
	entry := &SyncLogEntry{}
	var completed sql.NullString
	var message sql.NullString
	err := r.db.QueryRow(r.db.rebind(`
		SELECT id, sync_type, CAST(completed_at AS TEXT), records_processed, records_written, error_message
		FROM sync_log WHERE sync_type = ? ORDER BY id DESC LIMIT 1
	`), syncType).Scan(&entry.ID, &entry.SyncType, &completed,
		&entry.RecordsProcessed, &entry.RecordsWritten, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync log: %w", err)
	}

	entry.Completed = completed.Valid
	entry.ErrorMessage = message.String
	return entry, nil
}
