package localstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/solvane/lumen/internal/apperr"
)

// SaveMirror upserts the cached payload for (userID, kind).
func (db *DB) SaveMirror(userID, kind string, payload []byte) error {
	_, err := db.conn.Exec(`
		INSERT INTO mirror (user_id, kind, payload, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, kind) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = excluded.updated_at
	`, userID, kind, string(payload))
	if err != nil {
		return fmt.Errorf("localstore: save mirror %s/%s: %w", userID, kind, err)
	}
	return nil
}

// LoadMirror returns the cached payload for (userID, kind), or
// apperr.ErrNotFound when nothing has been cached yet.
func (db *DB) LoadMirror(userID, kind string) ([]byte, error) {
	var payload string
	err := db.conn.QueryRow(
		`SELECT payload FROM mirror WHERE user_id = ? AND kind = ?`,
		userID, kind,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mirror %s/%s", apperr.ErrNotFound, userID, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: load mirror %s/%s: %w", userID, kind, err)
	}
	return []byte(payload), nil
}
