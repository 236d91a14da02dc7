package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/classdeck/internal/courseservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *courseservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Courses.
	r.Get("/courses", h.ListCourses)
	r.Post("/courses", h.CreateCourse)
	r.Get("/courses/{id}", h.GetCourse)
	r.Delete("/courses/{id}", h.DeleteCourse)

	// Today.
	r.Get("/today", h.Today)
	r.Get("/today.ics", h.TodayCalendar)

	// Snapshot export triggers and status.
	r.Post("/lifecycle/foreground", h.Foreground)
	r.Post("/export", h.Export)
	r.Get("/status", h.Status)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
