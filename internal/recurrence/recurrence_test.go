package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/classdeck/internal/models"
)

var cst = time.FixedZone("CST", 8*3600)

func testTerm() Term {
	return Term{Start: time.Date(2026, 9, 7, 0, 0, 0, 0, cst), Weeks: 20}
}

func course(wd time.Weekday, first, last int, parity models.Parity) models.Course {
	return models.Course{
		Name:    "Operating Systems",
		Weekday: wd,
		Period:  3,
		Span:    2,
		Weeks:   models.WeekPattern{First: first, Last: last, Parity: parity},
	}
}

func TestWeek(t *testing.T) {
	term := testTerm()
	assert.Equal(t, 0, term.Week(time.Date(2026, 9, 6, 23, 0, 0, 0, cst)))
	assert.Equal(t, 1, term.Week(time.Date(2026, 9, 7, 8, 0, 0, 0, cst)))
	assert.Equal(t, 1, term.Week(time.Date(2026, 9, 13, 23, 59, 0, 0, cst)))
	assert.Equal(t, 7, term.Week(time.Date(2026, 10, 19, 10, 0, 0, 0, cst)))
}

func TestOccurs(t *testing.T) {
	term := testTerm()
	monday := time.Date(2026, 10, 19, 9, 30, 0, 0, cst) // week 7

	cases := []struct {
		name string
		c    models.Course
		want bool
	}{
		{"every week", course(time.Monday, 1, 16, models.ParityAll), true},
		{"odd weeks", course(time.Monday, 1, 16, models.ParityOdd), true},
		{"even weeks", course(time.Monday, 1, 16, models.ParityEven), false},
		{"even from odd start", course(time.Monday, 3, 16, models.ParityEven), false},
		{"later block", course(time.Monday, 8, 16, models.ParityAll), false},
		{"ended block", course(time.Monday, 1, 6, models.ParityAll), false},
		{"last week inclusive", course(time.Monday, 1, 7, models.ParityAll), true},
		{"other weekday", course(time.Tuesday, 1, 16, models.ParityAll), false},
		{"empty pattern", course(time.Monday, 9, 8, models.ParityAll), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, term.Occurs(tc.c, monday))
		})
	}
}

func TestOccursWeekend(t *testing.T) {
	term := testTerm()
	saturday := time.Date(2026, 10, 17, 12, 0, 0, 0, cst) // week 6
	assert.True(t, term.Occurs(course(time.Saturday, 1, 16, models.ParityAll), saturday))
	assert.True(t, term.Occurs(course(time.Saturday, 1, 16, models.ParityEven), saturday))
	assert.False(t, term.Occurs(course(time.Sunday, 1, 16, models.ParityAll), saturday))
}

func TestOccursUsesDisplayZone(t *testing.T) {
	term := testTerm()
	// 2026-10-18 17:00 UTC is Monday 01:00 in CST.
	instant := time.Date(2026, 10, 18, 17, 0, 0, 0, time.UTC)
	assert.True(t, term.Occurs(course(time.Monday, 1, 16, models.ParityAll), instant))
}

func TestTermCapsLastWeek(t *testing.T) {
	term := Term{Start: testTerm().Start, Weeks: 6}
	monday := time.Date(2026, 10, 19, 9, 30, 0, 0, cst)
	assert.False(t, term.Occurs(course(time.Monday, 1, 16, models.ParityAll), monday))
}

func TestFilterKeepsOrder(t *testing.T) {
	term := testTerm()
	monday := time.Date(2026, 10, 19, 9, 30, 0, 0, cst)
	a := course(time.Monday, 1, 16, models.ParityAll)
	a.Name = "A"
	b := course(time.Tuesday, 1, 16, models.ParityAll)
	b.Name = "B"
	c := course(time.Monday, 1, 16, models.ParityOdd)
	c.Name = "C"

	got := term.Filter([]models.Course{a, b, c}, monday)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "C", got[1].Name)
}
