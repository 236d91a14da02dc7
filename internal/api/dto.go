package api

import (
	"time"

	"github.com/starford/classdeck/internal/courseservice"
	"github.com/starford/classdeck/internal/models"
)

// CreateCourseRequest is the request body for creating a course.
type CreateCourseRequest struct {
	ID       string             `json:"id,omitempty"`
	Name     string             `json:"name" example:"Compilers" validate:"required"`
	Teacher  string             `json:"teacher" example:"Prof. Lin"`
	Location string             `json:"location" example:"B-204"`
	Color    string             `json:"color" example:"#FF8800"`
	Weekday  time.Weekday       `json:"weekday" example:"1" validate:"required"`
	Period   int                `json:"period" example:"3" validate:"required"`
	Span     int                `json:"span" example:"2"`
	Weeks    models.WeekPattern `json:"weeks"`
}

func (r CreateCourseRequest) course() *models.Course {
	span := r.Span
	if span == 0 {
		span = 1
	}
	return &models.Course{
		ID:       r.ID,
		Name:     r.Name,
		Teacher:  r.Teacher,
		Location: r.Location,
		Color:    r.Color,
		Weekday:  r.Weekday,
		Period:   r.Period,
		Span:     span,
		Weeks:    r.Weeks,
	}
}

// CourseListResponse wraps course listings.
type CourseListResponse struct {
	Courses []models.Course `json:"courses" validate:"required"`
	Total   int             `json:"total" example:"12" validate:"required"`
}

// TodayEntry is one of today's classes (aliased from the domain layer).
type TodayEntry = courseservice.TodayEntry

// TodayResponse lists today's classes.
type TodayResponse struct {
	Date    string       `json:"date" example:"2026-10-19" validate:"required"`
	Entries []TodayEntry `json:"entries" validate:"required"`
}

// StatusResponse is the provisioning and export status (aliased from the domain layer).
type StatusResponse = courseservice.TierStatus
