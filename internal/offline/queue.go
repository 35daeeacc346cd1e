// Package offline implements the durable mutation queue: mutations made
// while the remote backend is unreachable are recorded and replayed once
// connectivity resumes.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/solvane/lumen/internal/localstore"
)

// DataType identifies what a queued payload contains.
type DataType string

const (
	DataHabits      DataType = "habits"
	DataProgress    DataType = "progress"
	DataSettings    DataType = "settings"
	DataDayProgress DataType = "dayProgress"
)

// ReplayFunc applies one queued payload against the remote backend.
// Returning an error leaves the item pending for the next flush.
type ReplayFunc func(ctx context.Context, dataType DataType, payload json.RawMessage) error

// Queue provides enqueue/flush semantics over the durable store.
type Queue struct {
	db     *localstore.DB
	logger *slog.Logger
}

// NewQueue creates a queue backed by db.
func NewQueue(db *localstore.DB, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{db: db, logger: logger}
}

// Enqueue appends a mutation for later replay. The payload is serialized
// to JSON at enqueue time so replay does not depend on in-memory state.
func (q *Queue) Enqueue(userID string, dataType DataType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("offline: marshal payload: %w", err)
	}
	id, err := q.db.EnqueueItem(userID, string(dataType), data)
	if err != nil {
		return err
	}
	q.logger.Debug("offline: queued mutation",
		slog.Int64("item", id),
		slog.String("type", string(dataType)))
	return nil
}

// Pending returns the number of unsynced items for the user.
func (q *Queue) Pending(userID string) (int, error) {
	return q.db.PendingCount(userID)
}

// Flush replays every unsynced item for userID in append order. Items
// whose replay succeeds are marked synced; failures stay pending for the
// next attempt. After the pass all synced items are garbage-collected, so
// a partial failure leaves exactly the failed subset behind. Flush is
// idempotent: running it again with nothing pending is a no-op.
func (q *Queue) Flush(ctx context.Context, userID string, replay ReplayFunc) (replayed, remaining int, err error) {
	items, err := q.db.PendingItems(userID)
	if err != nil {
		return 0, 0, err
	}

	for i, it := range items {
		if ctx.Err() != nil {
			remaining += len(items) - i
			break
		}
		if replayErr := replay(ctx, DataType(it.DataType), it.Payload); replayErr != nil {
			q.logger.Warn("offline: replay failed",
				slog.Int64("item", it.ID),
				slog.String("type", it.DataType),
				slog.String("error", replayErr.Error()))
			remaining++
			continue
		}
		if markErr := q.db.MarkSynced(it.ID); markErr != nil {
			q.logger.Warn("offline: mark synced failed",
				slog.Int64("item", it.ID),
				slog.String("error", markErr.Error()))
			remaining++
			continue
		}
		replayed++
	}

	if _, gcErr := q.db.DeleteSynced(userID); gcErr != nil {
		q.logger.Warn("offline: gc failed", slog.String("error", gcErr.Error()))
	}
	return replayed, remaining, nil
}
