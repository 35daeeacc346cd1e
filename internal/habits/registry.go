// Package habits implements the in-memory habit registry: CRUD with
// case-insensitive name uniqueness and monotonic id assignment.
//
// The registry holds no I/O. Persistence (remote write, cache mirror,
// offline queue) is coordinated by the tracker service, and the registry
// is only ever mutated under that service's lock.
package habits

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/solvane/lumen/internal/apperr"
	"github.com/solvane/lumen/internal/models"
)

// AddParams are the optional fields accepted when creating a habit.
// A zero Target defaults to 1.
type AddParams struct {
	Category string
	Unit     string
	Target   float64
}

// UpdateParams carries a partial habit update; nil fields are untouched.
type UpdateParams struct {
	Name     *string
	Category *string
	Unit     *string
	Target   *float64
	Active   *bool
}

// Registry owns the habit map. Ids are assigned max+1, so an id deleted
// within a session is never recycled.
type Registry struct {
	habits map[int64]models.Habit
	order  []int64
	now    func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		habits: make(map[int64]models.Habit),
		now:    time.Now,
	}
}

// Add creates a habit. The name is trimmed and must be non-empty and
// unique case-insensitively across active and inactive habits.
func (r *Registry) Add(name string, p AddParams) (models.Habit, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return models.Habit{}, apperr.ErrEmptyName
	}
	if id, taken := r.findByName(trimmed, 0); taken {
		return models.Habit{}, fmt.Errorf("%w: %q (habit %d)", apperr.ErrDuplicateName, trimmed, id)
	}

	target := p.Target
	if target <= 0 {
		target = 1
	}
	now := r.now()
	h := models.Habit{
		ID:        r.nextID(),
		Name:      trimmed,
		Category:  p.Category,
		Unit:      p.Unit,
		Target:    target,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.habits[h.ID] = h
	r.order = append(r.order, h.ID)
	return h, nil
}

// Update applies a partial update. A name change is re-validated for
// emptiness and uniqueness excluding the target habit itself.
func (r *Registry) Update(id int64, p UpdateParams) (models.Habit, error) {
	h, ok := r.habits[id]
	if !ok {
		return models.Habit{}, fmt.Errorf("%w: habit %d", apperr.ErrNotFound, id)
	}
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		if trimmed == "" {
			return models.Habit{}, apperr.ErrEmptyName
		}
		if other, taken := r.findByName(trimmed, id); taken {
			return models.Habit{}, fmt.Errorf("%w: %q (habit %d)", apperr.ErrDuplicateName, trimmed, other)
		}
		h.Name = trimmed
	}
	if p.Category != nil {
		h.Category = *p.Category
	}
	if p.Unit != nil {
		h.Unit = *p.Unit
	}
	if p.Target != nil && *p.Target > 0 {
		h.Target = *p.Target
	}
	if p.Active != nil {
		h.Active = *p.Active
	}
	h.UpdatedAt = r.now()
	r.habits[id] = h
	return h, nil
}

// Remove hard-deletes a habit. Historical progress entries referencing the
// id are left in place; consumers treat progress for a missing id as inert.
func (r *Registry) Remove(id int64) error {
	if _, ok := r.habits[id]; !ok {
		return fmt.Errorf("%w: habit %d", apperr.ErrNotFound, id)
	}
	delete(r.habits, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a habit by id.
func (r *Registry) Get(id int64) (models.Habit, bool) {
	h, ok := r.habits[id]
	return h, ok
}

// List returns all habits in insertion order.
func (r *Registry) List() []models.Habit {
	out := make([]models.Habit, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.habits[id])
	}
	return out
}

// ListActive returns habits with Active == true, in insertion order.
func (r *Registry) ListActive() []models.Habit {
	out := make([]models.Habit, 0, len(r.order))
	for _, id := range r.order {
		if h := r.habits[id]; h.Active {
			out = append(out, h)
		}
	}
	return out
}

// Len returns the number of habits.
func (r *Registry) Len() int {
	return len(r.habits)
}

// Snapshot returns a copy of the habit map in the persisted shape.
func (r *Registry) Snapshot() models.HabitMap {
	return models.HabitMap(r.habits).Clone()
}

// Replace swaps in a loaded habit map, e.g. from the remote backend or the
// local cache. Insertion order is reconstructed by ascending id.
func (r *Registry) Replace(m models.HabitMap) {
	r.habits = m.Clone()
	r.order = r.order[:0]
	for id := range r.habits {
		r.order = append(r.order, id)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
}

func (r *Registry) nextID() int64 {
	var max int64
	for id := range r.habits {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// findByName reports whether any habit other than exclude carries the
// trimmed name, compared case-insensitively.
func (r *Registry) findByName(trimmed string, exclude int64) (int64, bool) {
	for id, h := range r.habits {
		if id == exclude {
			continue
		}
		if strings.EqualFold(h.Name, trimmed) {
			return id, true
		}
	}
	return 0, false
}
