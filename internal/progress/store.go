// Package progress implements the in-memory progress store (date ->
// habit -> value) and the calculator that derives completion percentages,
// streaks, and range statistics from it.
package progress

import (
	"github.com/solvane/lumen/internal/dategrid"
	"github.com/solvane/lumen/internal/models"
)

// Store holds recorded completion values keyed by canonical date string,
// then by habit id. A date key exists iff at least one habit has a
// recorded entry for that day; empty day maps are always removed so that
// day-count queries never over-report.
//
// Like the habit registry, the store does no I/O and is mutated only
// under the tracker service's lock.
type Store struct {
	days models.ProgressMap
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{days: make(models.ProgressMap)}
}

// SetEntry records a value for (date, habit), creating the day map if
// needed. The date must be canonical YYYY-MM-DD.
func (s *Store) SetEntry(date string, habitID int64, v models.Value) error {
	if _, err := dategrid.Parse(date); err != nil {
		return err
	}
	day, ok := s.days[date]
	if !ok {
		day = make(models.DayMap)
		s.days[date] = day
	}
	day[habitID] = v
	return nil
}

// Entry returns the recorded value and whether one exists. Absence is
// distinct from an explicit false/0 value.
func (s *Store) Entry(date string, habitID int64) (models.Value, bool) {
	v, ok := s.days[date][habitID]
	return v, ok
}

// Day returns a copy of the day map for date, or nil if the day has no
// entries.
func (s *Store) Day(date string) models.DayMap {
	day, ok := s.days[date]
	if !ok {
		return nil
	}
	out := make(models.DayMap, len(day))
	for id, v := range day {
		out[id] = v
	}
	return out
}

// ClearDay removes every entry for date. It reports whether the day had
// any entries to clear.
func (s *Store) ClearDay(date string) bool {
	if _, ok := s.days[date]; !ok {
		return false
	}
	delete(s.days, date)
	return true
}

// ClearAll removes all recorded progress.
func (s *Store) ClearAll() {
	s.days = make(models.ProgressMap)
}

// DayCount returns the number of days with at least one entry.
func (s *Store) DayCount() int {
	return len(s.days)
}

// Snapshot returns a deep copy in the persisted shape.
func (s *Store) Snapshot() models.ProgressMap {
	return s.days.Clone()
}

// Replace swaps in a loaded progress map, pruning any empty day maps the
// source may carry.
func (s *Store) Replace(m models.ProgressMap) {
	s.days = m.Clone()
	for date, day := range s.days {
		if len(day) == 0 {
			delete(s.days, date)
		}
	}
}
