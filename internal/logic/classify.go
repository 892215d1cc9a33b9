package logic

import (
	"time"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// Classify maps a minute-of-day onto today's boundaries. Intervals are
// half-open and checked in priority order Day, Doze, Wake; everything else
// is Sleep.
//
// This assumes doze <= wake <= day <= sleep within the day. A sleep boundary
// in the early morning (e.g. 00:12) falls through to the wrong arm; that
// behaviour is kept as is.
func Classify(now schedule.Minutes, today schedule.DayEntry) State {
	doze := today.Doze.Minutes()
	wake := today.Wake.Minutes()
	day := today.Day.Minutes()
	sleep := today.Sleep.Minutes()

	switch {
	case now >= day && now < sleep:
		return StateDay
	case now >= doze && now < wake:
		return StateDoze
	case now >= wake && now < day:
		return StateWake
	default:
		return StateSleep
	}
}

// WeekdayIndex returns the day of the week for t with Monday as 0.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// MinuteOfDay returns t's wall-clock minute in its own location.
func MinuteOfDay(t time.Time) schedule.Minutes {
	return schedule.Minutes(t.Hour()*60 + t.Minute())
}
