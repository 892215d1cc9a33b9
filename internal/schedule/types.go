// Package schedule holds the weekly wake-up schedule, its persisted record
// format and the minute-of-day time model everything else compares against.
package schedule

import "fmt"

// Minutes is a time of day expressed as minutes since midnight (0..1439).
type Minutes int

// MinutesPerDay is the length of one classification cycle.
const MinutesPerDay Minutes = 24 * 60

// TimeOfDay is an hour/minute pair as stored in the persisted record.
type TimeOfDay struct {
	Hour   uint8
	Minute uint8
}

// At builds a TimeOfDay. It does not validate; see Valid.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: uint8(hour), Minute: uint8(minute)}
}

// FromMinutes converts a minute-of-day back into hours and minutes.
// Values outside 0..1439 wrap around the day.
func FromMinutes(m Minutes) TimeOfDay {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return TimeOfDay{Hour: uint8(m / 60), Minute: uint8(m % 60)}
}

// Minutes returns hour*60+minute.
func (t TimeOfDay) Minutes() Minutes {
	return Minutes(t.Hour)*60 + Minutes(t.Minute)
}

// Valid reports whether the hour is 0..23 and the minute 0..59.
func (t TimeOfDay) Valid() bool {
	return t.Hour <= 23 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Boundary names one of the four times in a DayEntry, in cyclic order.
type Boundary int

const (
	Doze Boundary = iota
	Wake
	Day
	Sleep
)

// Boundaries lists the four boundaries in record and wire order.
var Boundaries = [4]Boundary{Doze, Wake, Day, Sleep}

var boundaryNames = [4]string{"doze", "wake", "day", "sleep"}

func (b Boundary) String() string {
	if b >= 0 && int(b) < len(boundaryNames) {
		return boundaryNames[b]
	}
	return "unknown"
}

// DayEntry holds the four boundaries that partition one day.
// Day is the transition to daytime (LED off).
type DayEntry struct {
	Doze  TimeOfDay
	Wake  TimeOfDay
	Day   TimeOfDay
	Sleep TimeOfDay
}

// Get returns the time for the given boundary.
func (d DayEntry) Get(b Boundary) TimeOfDay {
	switch b {
	case Doze:
		return d.Doze
	case Wake:
		return d.Wake
	case Day:
		return d.Day
	case Sleep:
		return d.Sleep
	}
	return TimeOfDay{}
}

// Set replaces the time for the given boundary. Unknown boundaries are ignored.
func (d *DayEntry) Set(b Boundary, t TimeOfDay) {
	switch b {
	case Doze:
		d.Doze = t
	case Wake:
		d.Wake = t
	case Day:
		d.Day = t
	case Sleep:
		d.Sleep = t
	}
}

// Valid reports whether all four boundaries are valid times.
func (d DayEntry) Valid() bool {
	for _, b := range Boundaries {
		if !d.Get(b).Valid() {
			return false
		}
	}
	return true
}

// DaysPerWeek is the number of entries in a Week. Index 0 is Monday.
const DaysPerWeek = 7

var (
	weekdayNames  = [DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	documentNames = [DaysPerWeek]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

// WeekdayName returns the short name (Mon..Sun) for a Monday-based index.
func WeekdayName(i int) string {
	if i < 0 || i >= DaysPerWeek {
		return "???"
	}
	return weekdayNames[i]
}

// DocumentKey returns the lowercase day name used as a structured document key.
func DocumentKey(i int) string {
	if i < 0 || i >= DaysPerWeek {
		return ""
	}
	return documentNames[i]
}
