// Package models defines the domain types for classdeck.
package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Parity restricts a course to odd or even teaching weeks.
type Parity string

// Week parities.
const (
	ParityAll  Parity = "all"
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// WeekPattern describes which teaching weeks of the term a course meets in.
// Weeks are 1-based and inclusive.
type WeekPattern struct {
	First  int    `json:"first" yaml:"first"`
	Last   int    `json:"last" yaml:"last"`
	Parity Parity `json:"parity,omitempty" yaml:"parity,omitempty"`
}

// String renders the pattern as "1-16" or "1-16/odd".
func (w WeekPattern) String() string {
	if w.Parity == "" || w.Parity == ParityAll {
		return fmt.Sprintf("%d-%d", w.First, w.Last)
	}
	return fmt.Sprintf("%d-%d/%s", w.First, w.Last, w.Parity)
}

// Course is one recurring class as stored in the primary store.
type Course struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Teacher  string       `json:"teacher"`
	Location string       `json:"location"`
	Color    string       `json:"color"`
	Weekday  time.Weekday `json:"weekday"`
	Period   int          `json:"period"`
	Span     int          `json:"span"`
	Weeks    WeekPattern  `json:"weeks"`

	// Seq is the local insertion order (SQLite rowid). It is not replicated.
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NaturalKey identifies a course by meaning rather than by id. Two courses
// with the same natural key are duplicates of each other.
func (c Course) NaturalKey() string {
	name := norm.NFC.String(strings.TrimSpace(c.Name))
	name = cases.Fold().String(strings.Join(strings.Fields(name), " "))
	return fmt.Sprintf("%s|%d|%d|%s", name, c.Weekday, c.Period, c.Weeks)
}

// Preference is a per-device setting. Preferences are never replicated to
// the remote backend.
type Preference struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMeta describes a file in the shared container.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
