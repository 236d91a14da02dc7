// Package recurrence decides whether a course meets on a given date by
// expanding its week pattern against the teaching term.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/starford/classdeck/internal/models"
)

// Term is the teaching term the week numbers are counted in.
type Term struct {
	// Start is midnight of the Monday of week 1 in the display zone.
	Start time.Time
	// Weeks caps every pattern's last week. Zero means uncapped.
	Weeks int
}

// Week returns the 1-based teaching week containing date, or 0 when date
// falls before the term.
func (t Term) Week(date time.Time) int {
	day := midnight(date, t.Start.Location())
	if day.Before(t.Start) {
		return 0
	}
	days := int(day.Sub(t.Start).Hours()+12) / 24
	return days/7 + 1
}

// Rule builds the weekly rule for c: one occurrence per matching week, at
// midnight of the course's weekday.
func (t Term) Rule(c models.Course) (*rrule.RRule, error) {
	first, last := c.Weeks.First, c.Weeks.Last
	if t.Weeks > 0 && last > t.Weeks {
		last = t.Weeks
	}
	interval := 1
	switch c.Weeks.Parity {
	case models.ParityOdd:
		interval = 2
		if first%2 == 0 {
			first++
		}
	case models.ParityEven:
		interval = 2
		if first%2 == 1 {
			first++
		}
	}
	if first < 1 || first > last {
		return nil, fmt.Errorf("recurrence: empty week pattern %s", c.Weeks)
	}

	offset := (int(c.Weekday) + 6) % 7 // days after Monday
	dtstart := t.Start.AddDate(0, 0, (first-1)*7+offset)
	until := t.Start.AddDate(0, 0, (last-1)*7+offset)

	return rrule.NewRRule(rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: interval,
		Dtstart:  dtstart,
		Until:    until,
	})
}

// Occurs reports whether c meets on the calendar day of date.
func (t Term) Occurs(c models.Course, date time.Time) bool {
	day := midnight(date, t.Start.Location())
	if day.Weekday() != c.Weekday {
		return false
	}
	r, err := t.Rule(c)
	if err != nil {
		return false
	}
	return len(r.Between(day, day.Add(time.Hour), true)) > 0
}

// Filter returns the courses from cs that meet on date, in input order.
func (t Term) Filter(cs []models.Course, date time.Time) []models.Course {
	out := make([]models.Course, 0, len(cs))
	for _, c := range cs {
		if t.Occurs(c, date) {
			out = append(out, c)
		}
	}
	return out
}

func midnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
