// Package dategrid provides calendar-month arithmetic and the fixed
// 6x7 grid used to render a month view. All functions use local
// wall-clock semantics; the ambient timezone is authoritative.
package dategrid

import (
	"fmt"
	"time"

	"github.com/solvane/lumen/internal/apperr"
)

// Layout is the canonical date-string format.
const Layout = "2006-01-02"

// GridSize is the fixed number of cells in a month grid (6 rows x 7 columns).
const GridSize = 42

// Day is a single calendar-grid cell. Derived per render, never persisted.
type Day struct {
	Date         time.Time `json:"-"`
	DateString   string    `json:"date"`
	Day          int       `json:"day"`
	CurrentMonth bool      `json:"isCurrentMonth"`
	Today        bool      `json:"isToday"`
	Weekend      bool      `json:"isWeekend"`
}

// Format renders the date component of t as YYYY-MM-DD.
func Format(t time.Time) (string, error) {
	if t.IsZero() {
		return "", fmt.Errorf("%w: zero time", apperr.ErrInvalidDateInput)
	}
	return t.Format(Layout), nil
}

// Parse converts a canonical YYYY-MM-DD string to a local midnight time.
// Time-of-day is never preserved by the round trip; only the date
// component is canonical.
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperr.ErrInvalidDateFormat, s)
	}
	return t, nil
}

// StartOfMonth returns local midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns local midnight on the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return EndOfMonth(t).Day()
}

// AddDays returns t shifted by n calendar days. Pure, non-mutating.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths returns t shifted by n months. Month overflow follows the
// standard library's rollover (Jan 31 + 1 month lands in March).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// BuildGrid returns exactly 42 cells covering the month that contains
// monthDate. Leading cells are backfilled from the previous month and
// trailing cells from the next, both marked CurrentMonth=false. The grid
// starts on weekStart (the first configured week-start day) of the week
// containing the 1st.
func BuildGrid(monthDate time.Time, weekStart time.Weekday) []Day {
	return buildGridAt(monthDate, weekStart, time.Now())
}

func buildGridAt(monthDate time.Time, weekStart time.Weekday, now time.Time) []Day {
	first := StartOfMonth(monthDate)
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	cursor := AddDays(first, -offset)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	grid := make([]Day, 0, GridSize)
	for i := 0; i < GridSize; i++ {
		wd := cursor.Weekday()
		grid = append(grid, Day{
			Date:         cursor,
			DateString:   cursor.Format(Layout),
			Day:          cursor.Day(),
			CurrentMonth: cursor.Month() == first.Month() && cursor.Year() == first.Year(),
			Today:        cursor.Equal(today),
			Weekend:      wd == time.Saturday || wd == time.Sunday,
		})
		cursor = AddDays(cursor, 1)
	}
	return grid
}
