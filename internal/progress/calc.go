package progress

import (
	"fmt"
	"math"
	"time"

	"github.com/solvane/lumen/internal/apperr"
	"github.com/solvane/lumen/internal/dategrid"
	"github.com/solvane/lumen/internal/models"
)

// Completed is the single canonical completion predicate: absent is never
// completed, a boolean counts as-is, and a number counts when positive.
// Every other computation in this package routes through it.
func Completed(v models.Value, present bool) bool {
	if !present {
		return false
	}
	if v.Numeric {
		return v.Amount > 0
	}
	return v.Done
}

// HabitStats aggregates one habit's results over a date range.
type HabitStats struct {
	HabitID   int64  `json:"habitId"`
	Name      string `json:"name"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Streak    int    `json:"streak"`
}

// RangeStats aggregates day completion over an inclusive date range.
type RangeStats struct {
	Start          string               `json:"start"`
	End            string               `json:"end"`
	Days           int                  `json:"days"`
	AveragePercent int                  `json:"averagePercent"`
	BestDay        string               `json:"bestDay"`
	BestPercent    int                  `json:"bestPercent"`
	WorstDay       string               `json:"worstDay"`
	WorstPercent   int                  `json:"worstPercent"`
	Habits         map[int64]HabitStats `json:"habits"`
}

// Calculator derives display values from a Store and a habit list. It
// never mutates the store.
type Calculator struct {
	store *Store
	now   func() time.Time
}

// NewCalculator returns a calculator over store.
func NewCalculator(store *Store) *Calculator {
	return &Calculator{store: store, now: time.Now}
}

// DayPercent returns the day's completion percentage, 0..100, rounded
// half-up. Only active habits count toward numerator and denominator: a
// boolean true contributes the habit's full target, a numeric entry
// contributes min(value, target). With no active habits the result is 0.
func (c *Calculator) DayPercent(date string, habits []models.Habit) int {
	var num, den float64
	for _, h := range habits {
		if !h.Active {
			continue
		}
		target := h.EffectiveTarget()
		den += target

		v, ok := c.store.Entry(date, h.ID)
		if !ok {
			continue
		}
		if v.Numeric {
			num += math.Min(math.Max(v.Amount, 0), target)
		} else if v.Done {
			num += target
		}
	}
	if den == 0 {
		return 0
	}
	return int(math.Round(num / den * 100))
}

// Streak counts consecutive completed days for habitID walking backward
// from end (canonical date string; empty means today), including the end
// date. It stops at the first incomplete or absent day. Cost is O(streak
// length).
func (c *Calculator) Streak(habitID int64, end string) (int, error) {
	cursor, err := c.endDate(end)
	if err != nil {
		return 0, err
	}
	streak := 0
	for {
		date := cursor.Format(dategrid.Layout)
		v, ok := c.store.Entry(date, habitID)
		if !Completed(v, ok) {
			return streak, nil
		}
		streak++
		cursor = dategrid.AddDays(cursor, -1)
	}
}

// CompletionRate returns the percentage of the trailing windowDays days
// (ending today) on which the habit was completed.
func (c *Calculator) CompletionRate(habitID int64, windowDays int) (int, error) {
	if windowDays <= 0 {
		return 0, fmt.Errorf("%w: window must be positive, got %d", apperr.ErrInvalidRange, windowDays)
	}
	cursor, err := c.endDate("")
	if err != nil {
		return 0, err
	}
	completed := 0
	for i := 0; i < windowDays; i++ {
		date := cursor.Format(dategrid.Layout)
		v, ok := c.store.Entry(date, habitID)
		if Completed(v, ok) {
			completed++
		}
		cursor = dategrid.AddDays(cursor, -1)
	}
	return int(math.Round(float64(completed) / float64(windowDays) * 100)), nil
}

// RangeStats computes per-day completion over [start, end] inclusive,
// scanning oldest to newest. Best and worst day keep the first occurrence
// on ties. Per-habit counters track completed/total day counts and the
// streak ending at the range end.
func (c *Calculator) RangeStats(start, end string, habits []models.Habit) (*RangeStats, error) {
	from, err := dategrid.Parse(start)
	if err != nil {
		return nil, err
	}
	to, err := dategrid.Parse(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s > %s", apperr.ErrInvalidRange, start, end)
	}

	stats := &RangeStats{
		Start:        start,
		End:          end,
		BestPercent:  -1,
		WorstPercent: 101,
		Habits:       make(map[int64]HabitStats, len(habits)),
	}

	perHabit := make(map[int64]*HabitStats, len(habits))
	for _, h := range habits {
		if !h.Active {
			continue
		}
		perHabit[h.ID] = &HabitStats{HabitID: h.ID, Name: h.Name}
	}

	sum := 0
	for cursor := from; !cursor.After(to); cursor = dategrid.AddDays(cursor, 1) {
		date := cursor.Format(dategrid.Layout)
		pct := c.DayPercent(date, habits)
		sum += pct
		stats.Days++

		if pct > stats.BestPercent {
			stats.BestPercent = pct
			stats.BestDay = date
		}
		if pct < stats.WorstPercent {
			stats.WorstPercent = pct
			stats.WorstDay = date
		}

		for id, hs := range perHabit {
			hs.Total++
			v, ok := c.store.Entry(date, id)
			if Completed(v, ok) {
				hs.Completed++
			}
		}
	}

	stats.AveragePercent = int(math.Round(float64(sum) / float64(stats.Days)))
	for id, hs := range perHabit {
		streak, err := c.Streak(id, end)
		if err != nil {
			return nil, err
		}
		hs.Streak = streak
		stats.Habits[id] = *hs
	}
	return stats, nil
}

func (c *Calculator) endDate(end string) (time.Time, error) {
	if end == "" {
		now := c.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	return dategrid.Parse(end)
}
