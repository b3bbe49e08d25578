package turso

import (
	"context"
	"database/sql"
	"fmt"
)

const currentExperimentKey = "current_experiment_id"

// SessionStateRepository persists the current experiment id across restarts.
type SessionStateRepository struct {
	db *sql.DB
}

func NewSessionStateRepository(db *sql.DB) *SessionStateRepository {
	return &SessionStateRepository{db: db}
}

// GetCurrentExperimentID returns "" when nothing has been stored.
func (r *SessionStateRepository) GetCurrentExperimentID(ctx context.Context) (string, error) {
	id, err := withRetry(ctx, maxStreamRetries, func() (string, error) {
		var v string
		err := r.db.QueryRowContext(ctx, `SELECT value FROM session_state WHERE key = ?`, currentExperimentKey).Scan(&v)
		return v, err
	})
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get current experiment id: %w", err)
	}
	return id, nil
}

// SetCurrentExperimentID stores id. An empty id clears the stored value.
func (r *SessionStateRepository) SetCurrentExperimentID(ctx context.Context, id string) error {
	if id == "" {
		err := withRetryErr(ctx, func() error {
			_, err := r.db.ExecContext(ctx, `DELETE FROM session_state WHERE key = ?`, currentExperimentKey)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to clear current experiment id: %w", err)
		}
		return nil
	}

	err := withRetryErr(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, currentExperimentKey, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set current experiment id: %w", err)
	}
	return nil
}
