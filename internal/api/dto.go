package api

import (
	"encoding/json"

	"github.com/solvane/lumen/internal/models"
	"github.com/solvane/lumen/internal/progress"
	"github.com/solvane/lumen/internal/tracker"
)

// CreateHabitRequest is the request body for creating a habit.
type CreateHabitRequest struct {
	Name     string  `json:"name" example:"Read" validate:"required"`
	Category string  `json:"category,omitempty" example:"learning"`
	Unit     string  `json:"unit,omitempty" example:"pages"`
	Target   float64 `json:"target,omitempty" example:"20"`
}

// UpdateHabitRequest carries a partial habit update; absent fields are
// left untouched.
type UpdateHabitRequest struct {
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	Target   *float64 `json:"target,omitempty"`
	Active   *bool    `json:"isActive,omitempty"`
}

// SetProgressRequest is the request body for recording a day entry. The
// value is a bare JSON scalar: a bool for yes/no habits or a number for
// quantified ones.
type SetProgressRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

// HabitListResponse wraps habit listings.
type HabitListResponse struct {
	Habits []models.Habit `json:"habits" validate:"required"`
	Total  int            `json:"total" example:"5" validate:"required"`
}

// ProgressResponse is returned after a progress mutation.
type ProgressResponse struct {
	Date    string       `json:"date" example:"2024-01-15" validate:"required"`
	HabitID int64        `json:"habitId,omitempty" example:"3"`
	Value   models.Value `json:"value,omitempty"`
	Percent int          `json:"percent" example:"67" validate:"required"`
}

// DayResponse is the full recorded state of one day.
type DayResponse struct {
	Date    string        `json:"date" validate:"required"`
	Entries models.DayMap `json:"entries" validate:"required"`
	Percent int           `json:"percent" validate:"required"`
}

// CalendarResponse wraps a month grid.
type CalendarResponse struct {
	Month string                `json:"month" example:"2024-03" validate:"required"`
	Days  []tracker.CalendarDay `json:"days" validate:"required"`
}

// StreakResponse reports a habit's current streak.
type StreakResponse struct {
	HabitID int64  `json:"habitId" validate:"required"`
	End     string `json:"end" example:"2024-01-15" validate:"required"`
	Streak  int    `json:"streak" example:"5" validate:"required"`
}

// RateResponse reports a habit's trailing completion rate.
type RateResponse struct {
	HabitID int64 `json:"habitId" validate:"required"`
	Window  int   `json:"window" example:"7" validate:"required"`
	Percent int   `json:"percent" example:"43" validate:"required"`
}

// StatsResponse is the range aggregate (aliased from the domain layer).
type StatsResponse = progress.RangeStats

// StatusResponse is the sync indicator (aliased from the domain layer).
type StatusResponse = tracker.SyncState
