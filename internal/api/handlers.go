package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/classdeck/internal/courseservice"
	"github.com/starford/classdeck/internal/export"
)

// Handler holds API route handlers.
type Handler struct {
	svc *courseservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *courseservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListCourses handles GET /api/courses.
//
//	@Summary		List all courses
//	@Tags			courses
//	@Produce		json
//	@Success		200		{object}	CourseListResponse
//	@Security		BearerAuth
//	@Router			/courses [get]
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListCourses(r.Context())
	if err != nil {
		slog.Error("list courses failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, CourseListResponse{Courses: items, Total: len(items)})
}

// GetCourse handles GET /api/courses/{id}.
//
//	@Summary		Get a single course
//	@Tags			courses
//	@Produce		json
//	@Param			id	path		string	true	"Course id"
//	@Success		200	{object}	models.Course
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{id} [get]
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.svc.GetCourse(r.Context(), id)
	if err != nil {
		writeError(w, "get course", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCourse handles POST /api/courses.
//
//	@Summary		Create a course
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateCourseRequest	true	"Course to create"
//	@Success		201		{object}	models.Course
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses [post]
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	c, err := h.svc.CreateCourse(r.Context(), req.course())
	if err != nil {
		writeError(w, "create course", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// DeleteCourse handles DELETE /api/courses/{id}.
//
//	@Summary		Delete a course
//	@Tags			courses
//	@Param			id	path	string	true	"Course id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{id} [delete]
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCourse(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete course", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Today handles GET /api/today.
//
//	@Summary		Today's classes in snapshot order
//	@Tags			today
//	@Produce		json
//	@Success		200	{object}	TodayResponse
//	@Security		BearerAuth
//	@Router			/today [get]
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	date, entries, err := h.svc.Today(r.Context())
	if err != nil {
		writeError(w, "today", err)
		return
	}
	writeJSON(w, http.StatusOK, TodayResponse{Date: date, Entries: entries})
}

// TodayCalendar handles GET /api/today.ics.
//
//	@Summary		Today's classes as an iCalendar feed
//	@Tags			today
//	@Produce		text/calendar
//	@Success		200
//	@Security		BearerAuth
//	@Router			/today.ics [get]
func (h *Handler) TodayCalendar(w http.ResponseWriter, r *http.Request) {
	date, entries, err := h.svc.Today(r.Context())
	if err != nil {
		writeError(w, "today calendar", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="today.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(renderCalendar(date, h.svc.Midnight(), entries)))
}

// Foreground handles POST /api/lifecycle/foreground.
//
//	@Summary		Report that the app came to the foreground
//	@Tags			lifecycle
//	@Success		202
//	@Security		BearerAuth
//	@Router			/lifecycle/foreground [post]
func (h *Handler) Foreground(w http.ResponseWriter, _ *http.Request) {
	h.trigger(w, export.ReasonForeground)
}

// Export handles POST /api/export.
//
//	@Summary		Request a snapshot export
//	@Tags			lifecycle
//	@Success		202
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	h.trigger(w, export.ReasonSchedule)
}

func (h *Handler) trigger(w http.ResponseWriter, reason string) {
	if err := h.svc.RequestExport(reason); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "reason": reason})
}

// Status handles GET /api/status.
//
//	@Summary		Store tier and last export
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}
