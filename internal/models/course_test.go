package models

import (
	"testing"
	"time"
)

func validCourse() Course {
	return Course{
		Name:    "Linear Algebra",
		Teacher: "Dr. Chen",
		Color:   "#3A7BD5",
		Weekday: time.Wednesday,
		Period:  3,
		Span:    2,
		Weeks:   WeekPattern{First: 1, Last: 16},
	}
}

func TestNaturalKey_NormalizesName(t *testing.T) {
	a := validCourse()
	b := validCourse()
	b.Name = "  linear   ALGEBRA "
	b.Teacher = "someone else"
	b.ID = "different"
	if a.NaturalKey() != b.NaturalKey() {
		t.Errorf("keys differ: %q vs %q", a.NaturalKey(), b.NaturalKey())
	}
}

func TestNaturalKey_NFC(t *testing.T) {
	a := validCourse()
	a.Name = "Caf\u00e9"
	b := validCourse()
	b.Name = "Cafe\u0301"
	if a.NaturalKey() != b.NaturalKey() {
		t.Error("composed and decomposed names should share a key")
	}
}

func TestNaturalKey_DistinguishesSlot(t *testing.T) {
	a := validCourse()
	b := validCourse()
	b.Period = 5
	c := validCourse()
	c.Weeks.Parity = ParityOdd
	if a.NaturalKey() == b.NaturalKey() || a.NaturalKey() == c.NaturalKey() {
		t.Error("different slots must not share a key")
	}
	d := validCourse()
	d.Weeks.Parity = ParityAll
	if a.NaturalKey() != d.NaturalKey() {
		t.Error("empty parity and 'all' should be equivalent")
	}
}

func TestCourseValidate(t *testing.T) {
	c := validCourse()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid course rejected: %v", err)
	}

	bad := []func(*Course){
		func(c *Course) { c.Name = "" },
		func(c *Course) { c.Period = 0 },
		func(c *Course) { c.Span = 0 },
		func(c *Course) { c.Color = "#12345" },
		func(c *Course) { c.Weeks.Last = 0 },
		func(c *Course) { c.Weeks = WeekPattern{First: 5, Last: 3} },
		func(c *Course) { c.Weeks.Parity = "sometimes" },
	}
	for i, mutate := range bad {
		c := validCourse()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestCourseValidate_ShortColor(t *testing.T) {
	c := validCourse()
	c.Color = "fa0"
	if err := c.Validate(); err != nil {
		t.Errorf("3-digit color rejected: %v", err)
	}
}
