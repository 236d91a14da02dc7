package api

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/starford/classdeck/internal/courseservice"
	"github.com/starford/classdeck/internal/timing"
)

// renderCalendar renders today's scheduled entries as VEVENTs. Entries
// with an unknown period have no times and are left out.
func renderCalendar(date string, midnight time.Time, entries []courseservice.TodayEntry) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//classdeck//today//EN")
	cal.SetName("Today " + date)

	stamp := time.Now().UTC()
	for _, e := range entries {
		if !e.Scheduled {
			continue
		}
		start := timing.WallClock(midnight, e.StartMinute)
		end := timing.WallClock(midnight, e.EndMinute)
		ev := cal.AddEvent(fmt.Sprintf("%s-%s@classdeck", e.ID, date))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(e.Name)
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if e.Teacher != "" {
			ev.SetDescription(e.Teacher)
		}
		if e.Color != "" {
			ev.SetProperty(ical.ComponentProperty("COLOR"), strings.TrimPrefix(e.Color, "#"))
		}
	}
	return cal.Serialize()
}
