package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/solvane/lumen/internal/tracker"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *tracker.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Habits CRUD.
	r.Get("/habits", h.ListHabits)
	r.Post("/habits", h.CreateHabit)
	r.Get("/habits/{habitID}", h.GetHabit)
	r.Patch("/habits/{habitID}", h.UpdateHabit)
	r.Delete("/habits/{habitID}", h.DeleteHabit)

	// Per-habit statistics.
	r.Get("/habits/{habitID}/streak", h.Streak)
	r.Get("/habits/{habitID}/rate", h.Rate)

	// Daily progress.
	r.Put("/progress/{date}/{habitID}", h.SetProgress)
	r.Get("/progress/{date}", h.GetDay)
	r.Delete("/progress/{date}", h.ClearDay)
	r.Delete("/progress", h.ClearAll)

	// Calendar and aggregates.
	r.Get("/calendar/{month}", h.Calendar)
	r.Get("/stats", h.Stats)

	// Sync status.
	r.Get("/status", h.Status)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
