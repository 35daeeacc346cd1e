package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/solvane/lumen/internal/apperr"
	"github.com/solvane/lumen/internal/habits"
	"github.com/solvane/lumen/internal/models"
	"github.com/solvane/lumen/internal/tracker"
)

// Handler holds API route handlers.
type Handler struct {
	svc *tracker.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *tracker.Service) *Handler {
	return &Handler{svc: svc}
}

// habitID extracts and parses the {habitID} route parameter.
func habitID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "habitID"), 10, 64)
}

// writeError maps domain errors onto HTTP statuses: validation failures
// become 400, duplicate names 409, unknown ids 404, remote outages 502.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrEmptyName),
		errors.Is(err, apperr.ErrInvalidDateFormat),
		errors.Is(err, apperr.ErrInvalidDateInput),
		errors.Is(err, apperr.ErrInvalidRange):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrDuplicateName):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrUnavailable):
		writeJSON(w, http.StatusBadGateway, errorBody("backend unavailable"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListHabits handles GET /api/habits.
//
//	@Summary		List habits in creation order
//	@Tags			habits
//	@Produce		json
//	@Param			active	query		bool	false	"Only active habits"
//	@Success		200		{object}	HabitListResponse
//	@Security		BearerAuth
//	@Router			/habits [get]
func (h *Handler) ListHabits(w http.ResponseWriter, r *http.Request) {
	var items []models.Habit
	if r.URL.Query().Get("active") == "true" {
		items = h.svc.ActiveHabits()
	} else {
		items = h.svc.Habits()
	}
	writeJSON(w, http.StatusOK, HabitListResponse{Habits: items, Total: len(items)})
}

// GetHabit handles GET /api/habits/{habitID}.
//
//	@Summary		Get a single habit by id
//	@Tags			habits
//	@Produce		json
//	@Param			habitID	path		int	true	"Habit id"
//	@Success		200		{object}	models.Habit
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/habits/{habitID} [get]
func (h *Handler) GetHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid habit id"))
		return
	}
	habit, err := h.svc.GetHabit(id)
	if err != nil {
		writeError(w, "get habit", err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// CreateHabit handles POST /api/habits.
//
//	@Summary		Create a new habit
//	@Tags			habits
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateHabitRequest	true	"Habit to create"
//	@Success		201		{object}	models.Habit
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/habits [post]
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	habit, err := h.svc.AddHabit(r.Context(), req.Name, habits.AddParams{
		Category: req.Category,
		Unit:     req.Unit,
		Target:   req.Target,
	})
	if err != nil {
		writeError(w, "create habit", err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

// UpdateHabit handles PATCH /api/habits/{habitID}.
//
//	@Summary		Partially update a habit
//	@Tags			habits
//	@Accept			json
//	@Produce		json
//	@Param			habitID	path		int					true	"Habit id"
//	@Param			body	body		UpdateHabitRequest	true	"Fields to change"
//	@Success		200		{object}	models.Habit
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/habits/{habitID} [patch]
func (h *Handler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid habit id"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	habit, err := h.svc.UpdateHabit(r.Context(), id, habits.UpdateParams{
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Target:   req.Target,
		Active:   req.Active,
	})
	if err != nil {
		writeError(w, "update habit", err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// DeleteHabit handles DELETE /api/habits/{habitID}.
//
//	@Summary		Delete a habit (history entries are retained but inert)
//	@Tags			habits
//	@Param			habitID	path	int	true	"Habit id"
//	@Success		204		"Habit deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/habits/{habitID} [delete]
func (h *Handler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid habit id"))
		return
	}
	if err := h.svc.RemoveHabit(r.Context(), id); err != nil {
		writeError(w, "delete habit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Streak handles GET /api/habits/{habitID}/streak.
//
//	@Summary		Current consecutive-day streak for a habit
//	@Tags			stats
//	@Produce		json
//	@Param			habitID	path		int		true	"Habit id"
//	@Param			end		query		string	false	"End date (YYYY-MM-DD), defaults to today"
//	@Success		200		{object}	StreakResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/habits/{habitID}/streak [get]
func (h *Handler) Streak(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid habit id"))
		return
	}
	end := r.URL.Query().Get("end")
	streak, err := h.svc.Streak(id, end)
	if err != nil {
		writeError(w, "streak", err)
		return
	}
	writeJSON(w, http.StatusOK, StreakResponse{HabitID: id, End: end, Streak: streak})
}

// Rate handles GET /api/habits/{habitID}/rate.
//
//	@Summary		Completion rate over a trailing window
//	@Tags			stats
//	@Produce		json
//	@Param			habitID	path		int	true	"Habit id"
//	@Param			window	query		int	false	"Window in days (default 7)"
//	@Success		200		{object}	RateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/habits/{habitID}/rate [get]
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid habit id"))
		return
	}
	window := 7
	if raw := r.URL.Query().Get("window"); raw != "" {
		window, err = strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid window"))
			return
		}
	}
	percent, err := h.svc.CompletionRate(id, window)
	if err != nil {
		writeError(w, "completion rate", err)
		return
	}
	writeJSON(w, http.StatusOK, RateResponse{HabitID: id, Window: window, Percent: percent})
}

// SetProgress handles PUT /api/progress/{date}/{habitID}.
//
//	@Summary		Record a progress value for one habit on one day
//	@Tags			progress
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Day (YYYY-MM-DD)"
//	@Param			habitID	path		int					true	"Habit id"
//	@Param			body	body		SetProgressRequest	true	"Bare bool or number value"
//	@Success		200		{object}	ProgressResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/progress/{date}/{habitID} [put]
func (h *Handler) SetProgress(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	id, err := habitID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid habit id"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SetProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Value) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("value is required"))
		return
	}
	var value models.Value
	if err := json.Unmarshal(req.Value, &value); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("value must be a bool or a number"))
		return
	}
	percent, err := h.svc.SetProgress(r.Context(), date, id, value)
	if err != nil {
		writeError(w, "set progress", err)
		return
	}
	writeJSON(w, http.StatusOK, ProgressResponse{Date: date, HabitID: id, Value: value, Percent: percent})
}

// GetDay handles GET /api/progress/{date}.
//
//	@Summary		All entries recorded for a day
//	@Tags			progress
//	@Produce		json
//	@Param			date	path		string	true	"Day (YYYY-MM-DD)"
//	@Success		200		{object}	DayResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/progress/{date} [get]
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	entries, percent, err := h.svc.Day(date)
	if err != nil {
		writeError(w, "get day", err)
		return
	}
	writeJSON(w, http.StatusOK, DayResponse{Date: date, Entries: entries, Percent: percent})
}

// ClearDay handles DELETE /api/progress/{date}.
//
//	@Summary		Remove every entry for a day
//	@Tags			progress
//	@Param			date	path	string	true	"Day (YYYY-MM-DD)"
//	@Success		204		"Day cleared (or already empty)"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/progress/{date} [delete]
func (h *Handler) ClearDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := h.svc.ClearDay(r.Context(), date); err != nil {
		writeError(w, "clear day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearAll handles DELETE /api/progress.
//
//	@Summary		Wipe the entire progress history
//	@Tags			progress
//	@Success		204	"History cleared"
//	@Security		BearerAuth
//	@Router			/progress [delete]
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Calendar handles GET /api/calendar/{month}.
//
//	@Summary		42-cell month grid with per-day completion percentages
//	@Tags			calendar
//	@Produce		json
//	@Param			month	path		string	true	"Month (YYYY-MM)"
//	@Success		200		{object}	CalendarResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/{month} [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	monthDate, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("month must be YYYY-MM"))
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{
		Month: month,
		Days:  h.svc.Calendar(monthDate),
	})
}

// Stats handles GET /api/stats.
//
//	@Summary		Aggregate completion statistics over a date range
//	@Tags			stats
//	@Produce		json
//	@Param			start	query		string	true	"Range start (YYYY-MM-DD)"
//	@Param			end		query		string	true	"Range end (YYYY-MM-DD)"
//	@Success		200		{object}	StatsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("start and end are required"))
		return
	}
	stats, err := h.svc.RangeStats(start, end)
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Status handles GET /api/status.
//
//	@Summary		Connectivity and offline-queue status
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}
