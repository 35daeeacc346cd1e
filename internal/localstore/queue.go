package localstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueItem is one durable pending mutation.
type QueueItem struct {
	ID        int64
	UserID    string
	DataType  string
	Payload   json.RawMessage
	CreatedAt time.Time
	Synced    bool
}

// EnqueueItem appends an unsynced mutation and returns its id.
func (db *DB) EnqueueItem(userID, dataType string, payload []byte) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO queue (user_id, data_type, payload) VALUES (?, ?, ?)`,
		userID, dataType, string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("localstore: enqueue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("localstore: enqueue id: %w", err)
	}
	return id, nil
}

// PendingItems returns the user's unsynced items in append order.
func (db *DB) PendingItems(userID string) ([]QueueItem, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, data_type, payload, created_at
		FROM queue
		WHERE user_id = ? AND synced = 0
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("localstore: pending items: %w", err)
	}
	defer rows.Close()

	var out []QueueItem
	for rows.Next() {
		var it QueueItem
		var payload string
		if err := rows.Scan(&it.ID, &it.UserID, &it.DataType, &payload, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.Payload = json.RawMessage(payload)
		out = append(out, it)
	}
	return out, rows.Err()
}

// PendingCount returns the number of unsynced items for the user.
func (db *DB) PendingCount(userID string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM queue WHERE user_id = ? AND synced = 0`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("localstore: pending count: %w", err)
	}
	return n, nil
}

// MarkSynced flags a single item as replayed.
func (db *DB) MarkSynced(id int64) error {
	if _, err := db.conn.Exec(`UPDATE queue SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("localstore: mark synced %d: %w", id, err)
	}
	return nil
}

// DeleteSynced garbage-collects replayed items for the user and returns
// how many were removed.
func (db *DB) DeleteSynced(userID string) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM queue WHERE user_id = ? AND synced = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("localstore: delete synced: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
