// Package tracker coordinates the in-memory habit and progress state with
// the remote backend, the local cache, the offline queue, and the event
// broker. It is the single write path: every mutation is applied
// optimistically in memory, mirrored to the cache, and pushed to the
// remote, or queued for replay when the remote is unreachable.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solvane/lumen/internal/apperr"
	"github.com/solvane/lumen/internal/dategrid"
	"github.com/solvane/lumen/internal/events"
	"github.com/solvane/lumen/internal/habits"
	"github.com/solvane/lumen/internal/localstore"
	"github.com/solvane/lumen/internal/models"
	"github.com/solvane/lumen/internal/offline"
	"github.com/solvane/lumen/internal/progress"
	"github.com/solvane/lumen/internal/remote"
)

// CalendarDay is one grid cell enriched with its completion percentage
// (the brightness-encoding input for the UI).
type CalendarDay struct {
	dategrid.Day
	Percent int `json:"percent"`
}

// SyncState is the passive status indicator exposed to the UI.
type SyncState struct {
	Online   bool      `json:"online"`
	Pending  int       `json:"pending"`
	LastSync time.Time `json:"lastSync,omitempty"`
}

// Service owns the session state for one signed-in user.
//
// Unlike the single-threaded UI loop this design descends from, HTTP
// handlers run on concurrent goroutines, so one mutex guards the
// registry and store. Remote ordering across devices stays last-write-wins.
type Service struct {
	mu       sync.Mutex
	registry *habits.Registry
	store    *progress.Store
	calc     *progress.Calculator

	remote remote.Provider
	cache  *localstore.DB
	queue  *offline.Queue
	broker *events.Broker
	logger *slog.Logger

	userID    string
	weekStart time.Weekday

	online       atomic.Bool
	lastSyncUnix atomic.Int64
}

// New creates a service for userID over the given collaborators.
func New(userID string, provider remote.Provider, cache *localstore.DB, queue *offline.Queue, broker *events.Broker, logger *slog.Logger, weekStart time.Weekday) *Service {
	store := progress.NewStore()
	return &Service{
		registry:  habits.NewRegistry(),
		store:     store,
		calc:      progress.NewCalculator(store),
		remote:    provider,
		cache:     cache,
		queue:     queue,
		broker:    broker,
		logger:    logger,
		userID:    userID,
		weekStart: weekStart,
	}
}

// Remote exposes the backend provider for connectivity probing.
func (s *Service) Remote() remote.Provider {
	return s.remote
}

// Load populates the session from the remote backend within timeout. On
// any failure it falls back to the local mirror and starts the session
// offline; it never fails outright (logged, not raised).
func (s *Service) Load(ctx context.Context, timeout time.Duration) {
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	habitMap, habitsErr := s.remote.ReadHabits(loadCtx, s.userID)
	progressMap, progressErr := s.remote.ReadProgress(loadCtx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if habitsErr == nil && progressErr == nil {
		s.registry.Replace(habitMap)
		s.store.Replace(progressMap)
		s.saveMirrorsLocked()
		s.online.Store(true)
		s.lastSyncUnix.Store(time.Now().Unix())
		s.logger.Info("tracker: loaded from remote",
			slog.Int("habits", s.registry.Len()),
			slog.Int("days", s.store.DayCount()))
		return
	}

	err := habitsErr
	if err == nil {
		err = progressErr
	}
	s.logger.Warn("tracker: remote load failed, using local mirror",
		slog.String("error", err.Error()))
	s.loadMirrorsLocked()
	s.online.Store(false)
	s.publishStatusLocked()
}

// AddHabit creates a habit and persists the updated map.
func (s *Service) AddHabit(ctx context.Context, name string, p habits.AddParams) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.registry.Add(name, p)
	if err != nil {
		return models.Habit{}, err
	}
	s.persistHabitsLocked(ctx)
	s.broker.Publish(events.Event{Type: events.HabitAdded, Data: h})
	return h, nil
}

// UpdateHabit applies a partial update and persists the updated map.
func (s *Service) UpdateHabit(ctx context.Context, id int64, p habits.UpdateParams) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.registry.Update(id, p)
	if err != nil {
		return models.Habit{}, err
	}
	s.persistHabitsLocked(ctx)
	s.broker.Publish(events.Event{Type: events.HabitUpdated, Data: h})
	return h, nil
}

// RemoveHabit hard-deletes a habit. Historical progress entries for the
// id are retained; they become inert for all derived values.
func (s *Service) RemoveHabit(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.Remove(id); err != nil {
		return err
	}
	s.persistHabitsLocked(ctx)
	s.broker.Publish(events.Event{Type: events.HabitRemoved, Data: map[string]int64{"id": id}})
	return nil
}

// Habits returns all habits in insertion order.
func (s *Service) Habits() []models.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.List()
}

// ActiveHabits returns active habits in insertion order.
func (s *Service) ActiveHabits() []models.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.ListActive()
}

// GetHabit returns one habit by id.
func (s *Service) GetHabit(id int64) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.registry.Get(id)
	if !ok {
		return models.Habit{}, fmt.Errorf("%w: habit %d", apperr.ErrNotFound, id)
	}
	return h, nil
}

// SetProgress records a value for (date, habit) and persists the updated
// progress map. The habit must exist; the date must be canonical.
func (s *Service) SetProgress(ctx context.Context, date string, habitID int64, v models.Value) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.Get(habitID); !ok {
		return 0, fmt.Errorf("%w: habit %d", apperr.ErrNotFound, habitID)
	}
	if err := s.store.SetEntry(date, habitID, v); err != nil {
		return 0, err
	}
	s.persistProgressLocked(ctx)

	percent := s.calc.DayPercent(date, s.registry.ListActive())
	s.broker.PublishProgress(events.ProgressUpdated, date, percent)
	return percent, nil
}

// Entry returns the recorded value for (date, habit), if any.
func (s *Service) Entry(date string, habitID int64) (models.Value, bool, error) {
	if _, err := dategrid.Parse(date); err != nil {
		return models.Value{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.store.Entry(date, habitID)
	return v, ok, nil
}

// Day returns every recorded entry for date plus the day's completion
// percentage over active habits.
func (s *Service) Day(date string) (models.DayMap, int, error) {
	if _, err := dategrid.Parse(date); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.store.Day(date)
	if entries == nil {
		entries = models.DayMap{}
	}
	return entries, s.calc.DayPercent(date, s.registry.ListActive()), nil
}

// ClearDay removes every entry for date. It reports whether the day had
// anything to clear.
func (s *Service) ClearDay(ctx context.Context, date string) (bool, error) {
	if _, err := dategrid.Parse(date); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.ClearDay(date) {
		return false, nil
	}
	s.persistProgressLocked(ctx)
	s.broker.PublishProgress(events.ProgressCleared, date, 0)
	return true, nil
}

// ClearAll wipes the progress history.
func (s *Service) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.ClearAll()
	s.persistProgressLocked(ctx)
	s.broker.Publish(events.Event{Type: events.ProgressCleared, Data: map[string]string{}})
}

// Calendar returns the 42-cell grid for the month containing monthDate,
// each cell annotated with its completion percentage.
func (s *Service) Calendar(monthDate time.Time) []CalendarDay {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.registry.ListActive()
	grid := dategrid.BuildGrid(monthDate, s.weekStart)
	out := make([]CalendarDay, len(grid))
	for i, d := range grid {
		out[i] = CalendarDay{Day: d, Percent: s.calc.DayPercent(d.DateString, active)}
	}
	return out
}

// Streak returns the habit's streak ending at end (empty means today).
func (s *Service) Streak(habitID int64, end string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.Get(habitID); !ok {
		return 0, fmt.Errorf("%w: habit %d", apperr.ErrNotFound, habitID)
	}
	return s.calc.Streak(habitID, end)
}

// CompletionRate returns the habit's completion percentage over the
// trailing windowDays days.
func (s *Service) CompletionRate(habitID int64, windowDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.Get(habitID); !ok {
		return 0, fmt.Errorf("%w: habit %d", apperr.ErrNotFound, habitID)
	}
	return s.calc.CompletionRate(habitID, windowDays)
}

// RangeStats aggregates completion over [start, end] for active habits.
func (s *Service) RangeStats(start, end string) (*progress.RangeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calc.RangeStats(start, end, s.registry.ListActive())
}

// Status returns the current sync state.
func (s *Service) Status() SyncState {
	pending, err := s.queue.Pending(s.userID)
	if err != nil {
		s.logger.Warn("tracker: pending count failed", slog.String("error", err.Error()))
	}
	state := SyncState{Online: s.online.Load(), Pending: pending}
	if ts := s.lastSyncUnix.Load(); ts > 0 {
		state.LastSync = time.Unix(ts, 0)
	}
	return state
}

// HandleConnectivity reacts to connectivity transitions reported by the
// watcher: a reconnect triggers the idempotent queue flush.
func (s *Service) HandleConnectivity(ctx context.Context, online bool) {
	was := s.online.Swap(online)
	if online && !was {
		s.FlushQueue(ctx)
	}
	s.mu.Lock()
	s.publishStatusLocked()
	s.mu.Unlock()
}

// FlushQueue replays pending offline mutations against the remote. Items
// that fail stay queued for the next attempt.
func (s *Service) FlushQueue(ctx context.Context) {
	replayed, remaining, err := s.queue.Flush(ctx, s.userID, s.replay)
	if err != nil {
		s.logger.Warn("tracker: flush failed", slog.String("error", err.Error()))
		return
	}
	if replayed > 0 && remaining == 0 {
		s.lastSyncUnix.Store(time.Now().Unix())
	}
	if replayed > 0 || remaining > 0 {
		s.logger.Info("tracker: queue flushed",
			slog.Int("replayed", replayed),
			slog.Int("remaining", remaining))
	}
}

// replay applies one queued payload. Whole-map payloads simply overwrite
// the corresponding remote subtree, so replaying in append order
// converges on the latest state.
func (s *Service) replay(ctx context.Context, dataType offline.DataType, payload json.RawMessage) error {
	switch dataType {
	case offline.DataHabits:
		var m models.HabitMap
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("tracker: decode queued habits: %w", err)
		}
		return s.remote.WriteHabits(ctx, s.userID, m)
	case offline.DataProgress, offline.DataDayProgress:
		var m models.ProgressMap
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("tracker: decode queued progress: %w", err)
		}
		return s.remote.WriteProgress(ctx, s.userID, m)
	default:
		// Unknown payloads would poison the queue; drop them.
		s.logger.Warn("tracker: dropping queued item of unknown type",
			slog.String("type", string(dataType)))
		return nil
	}
}

// persistHabitsLocked pushes the full habit map to the remote, mirrors it
// locally, and queues it on failure. Persistence failures never surface
// to the caller; the in-memory mutation is already applied (optimistic).
func (s *Service) persistHabitsLocked(ctx context.Context) {
	snap := s.registry.Snapshot()
	s.mirrorLocked(localstore.KindHabits, snap)

	if err := s.remote.WriteHabits(ctx, s.userID, snap); err != nil {
		s.handleWriteFailureLocked(offline.DataHabits, snap, err)
		return
	}
	s.markSyncedLocked()
}

// persistProgressLocked pushes the full progress map to the remote. The
// whole nested map is re-serialized on every toggle for schema
// compatibility; write cost grows with history size.
func (s *Service) persistProgressLocked(ctx context.Context) {
	snap := s.store.Snapshot()
	s.mirrorLocked(localstore.KindProgress, snap)

	if err := s.remote.WriteProgress(ctx, s.userID, snap); err != nil {
		s.handleWriteFailureLocked(offline.DataProgress, snap, err)
		return
	}
	s.markSyncedLocked()
}

func (s *Service) handleWriteFailureLocked(dataType offline.DataType, snap any, err error) {
	s.logger.Warn("tracker: remote write failed, queueing",
		slog.String("type", string(dataType)),
		slog.String("error", err.Error()))
	if qErr := s.queue.Enqueue(s.userID, dataType, snap); qErr != nil {
		s.logger.Error("tracker: enqueue failed", slog.String("error", qErr.Error()))
	}
	if s.online.Swap(false) {
		s.publishStatusLocked()
	}
}

func (s *Service) markSyncedLocked() {
	s.lastSyncUnix.Store(time.Now().Unix())
	if !s.online.Swap(true) {
		s.publishStatusLocked()
	}
}

func (s *Service) mirrorLocked(kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("tracker: encode mirror", slog.String("error", err.Error()))
		return
	}
	if err := s.cache.SaveMirror(s.userID, kind, data); err != nil {
		s.logger.Warn("tracker: save mirror failed", slog.String("error", err.Error()))
	}
}

func (s *Service) saveMirrorsLocked() {
	s.mirrorLocked(localstore.KindHabits, s.registry.Snapshot())
	s.mirrorLocked(localstore.KindProgress, s.store.Snapshot())
}

func (s *Service) loadMirrorsLocked() {
	if data, err := s.cache.LoadMirror(s.userID, localstore.KindHabits); err == nil {
		var m models.HabitMap
		if err := json.Unmarshal(data, &m); err == nil {
			s.registry.Replace(m)
		}
	}
	if data, err := s.cache.LoadMirror(s.userID, localstore.KindProgress); err == nil {
		var m models.ProgressMap
		if err := json.Unmarshal(data, &m); err == nil {
			s.store.Replace(m)
		}
	}
}

func (s *Service) publishStatusLocked() {
	s.broker.Publish(events.Event{Type: events.SyncStatus, Data: s.statusSnapshot()})
}

func (s *Service) statusSnapshot() SyncState {
	pending, _ := s.queue.Pending(s.userID)
	state := SyncState{Online: s.online.Load(), Pending: pending}
	if ts := s.lastSyncUnix.Load(); ts > 0 {
		state.LastSync = time.Unix(ts, 0)
	}
	return state
}
