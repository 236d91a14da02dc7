// Package timing holds the period timing table shared by the exporter and
// every snapshot consumer. Both sides must import this package instead of
// keeping their own copy.
package timing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/classdeck/internal/checksum"
)

// MinutesPerPeriod is the fixed length of one class period.
const MinutesPerPeriod = 45

// Table maps a 1-based period index to its start minute of day.
type Table struct {
	starts map[int]int
}

// NewTable builds a table from period → start minute of day.
func NewTable(starts map[int]int) Table {
	cp := make(map[int]int, len(starts))
	for p, m := range starts {
		cp[p] = m
	}
	return Table{starts: cp}
}

// Default is the campus bell schedule.
var Default = NewTable(map[int]int{
	1:  8 * 60,
	2:  8*60 + 55,
	3:  10 * 60,
	4:  10*60 + 55,
	5:  14 * 60,
	6:  14*60 + 55,
	7:  16 * 60,
	8:  16*60 + 55,
	9:  19 * 60,
	10: 19*60 + 55,
	11: 20*60 + 50,
})

// Start returns the start minute of day for period, if known.
func (t Table) Start(period int) (int, bool) {
	m, ok := t.starts[period]
	return m, ok
}

// Window returns [start, end) in minutes of day for a block of span periods
// beginning at period. ok is false for unknown periods or a non-positive span.
func (t Table) Window(period, span int) (start, end int, ok bool) {
	start, ok = t.starts[period]
	if !ok || span < 1 {
		return 0, 0, false
	}
	return start, start + span*MinutesPerPeriod, true
}

// Periods returns the known period indices in ascending order.
func (t Table) Periods() []int {
	out := make([]int, 0, len(t.starts))
	for p := range t.starts {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Fingerprint is a stable digest of the table contents. The exporter
// stamps it into every snapshot so consumers can detect drift.
func (t Table) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mpp=%d", MinutesPerPeriod)
	for _, p := range t.Periods() {
		fmt.Fprintf(&b, ";%d=%d", p, t.starts[p])
	}
	return checksum.Sum([]byte(b.String()))
}

// Formatter converts instants into the calendar date and minute of day of a
// single display zone. Construct one per process and pass it around.
type Formatter struct {
	loc *time.Location
}

// DateLayout is the layout used for snapshot dates.
const DateLayout = "2006-01-02"

// NewFormatter returns a formatter for loc. A nil loc means time.Local.
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{loc: loc}
}

// Location returns the display zone.
func (f *Formatter) Location() *time.Location { return f.loc }

// Date formats the calendar date of t in the display zone.
func (f *Formatter) Date(t time.Time) string {
	return t.In(f.loc).Format(DateLayout)
}

// ParseDate parses a DateLayout string as midnight in the display zone.
func (f *Formatter) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, f.loc)
}

// MinuteOfDay returns minutes since local midnight.
func (f *Formatter) MinuteOfDay(t time.Time) int {
	lt := t.In(f.loc)
	return lt.Hour()*60 + lt.Minute()
}

// Midnight returns the start of t's calendar day in the display zone.
func (f *Formatter) Midnight(t time.Time) time.Time {
	lt := t.In(f.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, f.loc)
}

// WallClock returns the wall-clock time minute of day on day's calendar
// date, in day's location. Unlike adding minutes to midnight it stays on
// the posted time across DST transitions.
func WallClock(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, day.Location())
}

// Clock renders a minute of day as HH:MM.
func Clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
