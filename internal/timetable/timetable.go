// Package timetable parses YAML timetable files into courses.
//
//	courses:
//	  - name: Compilers
//	    teacher: Prof. Lin
//	    location: B-204
//	    color: "#FF8800"
//	    weekday: monday     # name, short name or ISO number 1-7
//	    period: 3
//	    span: 2             # defaults to 1
//	    weeks: 1-16/odd     # "N", "N-M" or "N-M/odd|even"; defaults to the whole term
package timetable

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/classdeck/internal/models"
)

var weeksRe = regexp.MustCompile(`^\s*(\d+)\s*(?:-\s*(\d+))?\s*(?:/\s*(odd|even|all))?\s*$`)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "7": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "1": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "2": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "3": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "4": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "5": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "6": time.Saturday,
}

type file struct {
	Courses []row `yaml:"courses"`
}

type row struct {
	Name     string `yaml:"name"`
	Teacher  string `yaml:"teacher"`
	Location string `yaml:"location"`
	Color    string `yaml:"color"`
	Weekday  string `yaml:"weekday"`
	Period   int    `yaml:"period"`
	Span     int    `yaml:"span"`
	Weeks    string `yaml:"weeks"`
}

// Parse decodes a timetable. termWeeks is the default last week for rows
// without a weeks field. Every row is validated; all problems are joined
// into one error with the row number.
func Parse(data []byte, termWeeks int) ([]models.Course, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("timetable: parse: %w", err)
	}
	if termWeeks < 1 {
		termWeeks = 1
	}

	out := make([]models.Course, 0, len(f.Courses))
	var errs []error
	for i, r := range f.Courses {
		c, err := r.course(termWeeks)
		if err == nil {
			err = c.Validate()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("course %d (%s): %w", i+1, r.Name, err))
			continue
		}
		out = append(out, c)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("timetable: %w", errors.Join(errs...))
	}
	return out, nil
}

func (r row) course(termWeeks int) (models.Course, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(r.Weekday))]
	if !ok {
		return models.Course{}, fmt.Errorf("unknown weekday %q", r.Weekday)
	}
	weeks := models.WeekPattern{First: 1, Last: termWeeks, Parity: models.ParityAll}
	if r.Weeks != "" {
		var err error
		if weeks, err = ParseWeeks(r.Weeks); err != nil {
			return models.Course{}, err
		}
	}
	span := r.Span
	if span == 0 {
		span = 1
	}
	return models.Course{
		Name:     strings.TrimSpace(r.Name),
		Teacher:  strings.TrimSpace(r.Teacher),
		Location: strings.TrimSpace(r.Location),
		Color:    strings.TrimSpace(r.Color),
		Weekday:  wd,
		Period:   r.Period,
		Span:     span,
		Weeks:    weeks,
	}, nil
}

// ParseWeeks parses "N", "N-M" or "N-M/odd|even".
func ParseWeeks(s string) (models.WeekPattern, error) {
	m := weeksRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return models.WeekPattern{}, fmt.Errorf("invalid weeks %q", s)
	}
	first, _ := strconv.Atoi(m[1])
	last := first
	if m[2] != "" {
		last, _ = strconv.Atoi(m[2])
	}
	parity := models.ParityAll
	if m[3] != "" {
		parity = models.Parity(m[3])
	}
	return models.WeekPattern{First: first, Last: last, Parity: parity}, nil
}

// Saver is the store operation an import needs.
type Saver interface {
	SaveCourse(ctx context.Context, c *models.Course) error
}

// Import saves every course in order and returns how many were saved. It
// stops at the first failure.
func Import(ctx context.Context, s Saver, courses []models.Course) (int, error) {
	for i := range courses {
		if err := s.SaveCourse(ctx, &courses[i]); err != nil {
			return i, fmt.Errorf("timetable: save %s: %w", courses[i].Name, err)
		}
	}
	return len(courses), nil
}
