package widget

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/starford/classdeck/internal/snapshot"
	"github.com/starford/classdeck/internal/timing"
)

// Slot is an entry resolved against the timing table.
type Slot struct {
	snapshot.Entry
	StartMinute int    `json:"startMinute"`
	EndMinute   int    `json:"endMinute"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// Current is a slot in progress.
type Current struct {
	Slot
	// Progress is the elapsed fraction in [0,1].
	Progress float64 `json:"progress"`
	// Percent is Progress×100 rounded to one decimal place.
	Percent decimal.Decimal `json:"percent"`
}

// DisplayState is the time-relative view of today's entries.
type DisplayState struct {
	MinuteOfDay int       `json:"minuteOfDay"`
	Current     []Current `json:"current"`
	Next        *Slot     `json:"next,omitempty"`
	// Unscheduled lists entries whose period is not in the timing table.
	Unscheduled []snapshot.Entry `json:"unscheduled"`
	Slots       []Slot           `json:"slots"`
}

// HasCurrent reports whether any class is in progress.
func (s DisplayState) HasCurrent() bool { return len(s.Current) > 0 }

// CurrentState computes the display state at now, read in now's own
// location. An entry is current when start <= now < end; every
// overlapping entry is reported. Entries with an unknown period are
// listed as unscheduled and never become current.
func CurrentState(entries []snapshot.Entry, now time.Time, table timing.Table) DisplayState {
	minute := now.Hour()*60 + now.Minute()
	st := DisplayState{
		MinuteOfDay: minute,
		Current:     []Current{},
		Unscheduled: []snapshot.Entry{},
		Slots:       make([]Slot, 0, len(entries)),
	}

	for _, e := range entries {
		start, end, ok := table.Window(e.PeriodIndex, e.PeriodSpan)
		if !ok {
			st.Unscheduled = append(st.Unscheduled, e)
			continue
		}
		slot := Slot{
			Entry:       e,
			StartMinute: start,
			EndMinute:   end,
			Start:       timing.Clock(start),
			End:         timing.Clock(end),
		}
		st.Slots = append(st.Slots, slot)

		switch {
		case start <= minute && minute < end:
			st.Current = append(st.Current, progressOf(slot, minute))
		case start > minute:
			if st.Next == nil || start < st.Next.StartMinute {
				s := slot
				st.Next = &s
			}
		}
	}
	return st
}

func progressOf(s Slot, minute int) Current {
	elapsed := decimal.NewFromInt(int64(minute - s.StartMinute))
	length := decimal.NewFromInt(int64(s.EndMinute - s.StartMinute))
	frac := elapsed.Div(length)
	if frac.LessThan(decimal.Zero) {
		frac = decimal.Zero
	}
	if frac.GreaterThan(decimal.NewFromInt(1)) {
		frac = decimal.NewFromInt(1)
	}
	progress, _ := frac.Float64()
	return Current{
		Slot:     s,
		Progress: progress,
		Percent:  frac.Mul(decimal.NewFromInt(100)).Round(1),
	}
}
