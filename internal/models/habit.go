// Package models defines the domain types for Lumen.
package models

import "time"

// Habit is a user-defined recurring task with a daily target quantity.
type Habit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Target    float64   `json:"target"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EffectiveTarget returns the daily quota used in percentage math.
// A habit created without an explicit target counts as 1 per day.
func (h Habit) EffectiveTarget() float64 {
	if h.Target <= 0 {
		return 1
	}
	return h.Target
}

// HabitMap mirrors the persisted layout users/{userId}/habits/{habitId}.
type HabitMap map[int64]Habit

// Clone returns a copy that the caller may mutate freely.
func (m HabitMap) Clone() HabitMap {
	out := make(HabitMap, len(m))
	for id, h := range m {
		out[id] = h
	}
	return out
}
