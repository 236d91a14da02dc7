package timetable

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/starford/classdeck/internal/models"
	"github.com/starford/classdeck/internal/store"
)

const sample = `
courses:
  - name: Compilers
    teacher: Prof. Lin
    location: B-204
    color: "#FF8800"
    weekday: monday
    period: 3
    span: 2
    weeks: 1-16/odd
  - name: Networks
    weekday: Fri
    period: 5
  - name: Seminar
    weekday: 7
    period: 9
    weeks: "4"
`

func TestParse(t *testing.T) {
	cs, err := Parse([]byte(sample), 18)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cs) != 3 {
		t.Fatalf("len = %d, want 3", len(cs))
	}
	c := cs[0]
	if c.Name != "Compilers" || c.Weekday != time.Monday || c.Period != 3 || c.Span != 2 {
		t.Errorf("course = %+v", c)
	}
	if c.Weeks != (models.WeekPattern{First: 1, Last: 16, Parity: models.ParityOdd}) {
		t.Errorf("weeks = %+v", c.Weeks)
	}
	if cs[1].Span != 1 || cs[1].Weeks.Last != 18 || cs[1].Weekday != time.Friday {
		t.Errorf("defaults not applied: %+v", cs[1])
	}
	if cs[2].Weekday != time.Sunday || cs[2].Weeks.First != 4 || cs[2].Weeks.Last != 4 {
		t.Errorf("single week: %+v", cs[2])
	}
}

func TestParseReportsEveryBadRow(t *testing.T) {
	bad := `
courses:
  - name: A
    weekday: someday
    period: 1
  - name: ""
    weekday: mon
    period: 1
  - name: C
    weekday: mon
    period: 1
    weeks: 8-2
`
	_, err := Parse([]byte(bad), 18)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"course 1", "course 2", "course 3"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("courses: [ {{{"), 18); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseWeeks(t *testing.T) {
	cases := map[string]models.WeekPattern{
		"1-16":         {First: 1, Last: 16, Parity: models.ParityAll},
		" 2 - 10/even": {First: 2, Last: 10, Parity: models.ParityEven},
		"5":            {First: 5, Last: 5, Parity: models.ParityAll},
		"1-9/ODD":      {First: 1, Last: 9, Parity: models.ParityOdd},
	}
	for in, want := range cases {
		got, err := ParseWeeks(in)
		if err != nil {
			t.Errorf("ParseWeeks(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseWeeks(%q) = %+v, want %+v", in, got, want)
		}
	}
	for _, in := range []string{"", "a-b", "1-2/weekly", "-3"} {
		if _, err := ParseWeeks(in); err == nil {
			t.Errorf("ParseWeeks(%q) should fail", in)
		}
	}
}

func TestImport(t *testing.T) {
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	cs, err := Parse([]byte(sample), 18)
	if err != nil {
		t.Fatal(err)
	}
	n, err := Import(context.Background(), s, cs)
	if err != nil || n != 3 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	all, _ := s.ListCourses(context.Background())
	if len(all) != 3 || all[0].ID == "" {
		t.Errorf("stored = %+v", all)
	}
}
