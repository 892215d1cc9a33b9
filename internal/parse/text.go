package parse

import (
	"fmt"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// The text format is zero or more '#' comment lines followed by one line per
// weekday, Monday first:
//
//	# doze|wake|day|sleep
//	0615|0630|0700|1845
//
// Each field is HHMM. Text after the fourth field of a data line is ignored
// up to the newline. Only blank lines and comments may follow the seventh line.

type textState int

const (
	stateIdle      textState = iota // at the start of a line
	stateHour                       // reading the HH digits of a field
	stateMinute                     // reading the MM digits of a field
	stateSeparator                  // expecting '|' between fields
	stateComment                    // skipping to the next newline
)

var textStateNames = [...]string{"idle", "hour", "minute", "separator", "comment"}

func (s textState) String() string {
	if s >= 0 && int(s) < len(textStateNames) {
		return textStateNames[s]
	}
	return "unknown"
}

type textScanner struct {
	state textState
	days  [schedule.DaysPerWeek]schedule.DayEntry
	lines int               // completed data lines
	event schedule.Boundary // field within the current line
	first byte              // first digit of the current pair
	half  bool              // first digit has been seen
	hour  uint8

	row, col int
}

// ParseText parses the line-oriented text format. The returned week is
// sealed. On error nothing is returned; the caller's schedule is never
// touched.
func ParseText(payload []byte) (schedule.Week, error) {
	s := textScanner{row: 1}
	for _, c := range payload {
		s.col++
		if err := s.step(c); err != nil {
			return schedule.Week{}, err
		}
		if c == '\n' {
			s.row++
			s.col = 0
		}
	}
	if s.lines != schedule.DaysPerWeek {
		return schedule.Week{}, &Error{
			Kind:   ErrShortSchedule,
			Detail: fmt.Sprintf("expected %d lines but got %d", schedule.DaysPerWeek, s.lines),
		}
	}
	return schedule.Seal(s.days), nil
}

func (s *textScanner) step(c byte) error {
	switch s.state {
	case stateComment:
		if c == '\n' {
			s.state = stateIdle
		}
		return nil

	case stateIdle:
		if c == '#' {
			s.state = stateComment
			return nil
		}
		if s.lines == schedule.DaysPerWeek {
			if isSpace(c) {
				return nil
			}
			return s.fail(ErrTrailingData, fmt.Sprintf("%q", c))
		}
		s.state = stateHour
		s.first, s.half = c, true
		return nil

	case stateHour:
		if !s.half {
			s.first, s.half = c, true
			return nil
		}
		v, err := s.pair(c, 23)
		if err != nil {
			return err
		}
		s.hour = v
		s.state = stateMinute
		return nil

	case stateMinute:
		if !s.half {
			s.first, s.half = c, true
			return nil
		}
		v, err := s.pair(c, 59)
		if err != nil {
			return err
		}
		s.days[s.lines].Set(s.event, schedule.TimeOfDay{Hour: s.hour, Minute: v})
		if s.event == schedule.Sleep {
			s.lines++
			s.event = schedule.Doze
			s.state = stateComment
			return nil
		}
		s.state = stateSeparator
		return nil

	case stateSeparator:
		if c != '|' {
			return s.fail(ErrMissingSeparator, fmt.Sprintf("got %q after %s", c, s.event))
		}
		s.event++
		s.state = stateHour
		return nil
	}
	return s.fail(ErrMalformedDocument, "scanner in state "+s.state.String())
}

// pair decodes the two-digit value formed by the pending digit and c.
func (s *textScanner) pair(c byte, limit uint8) (uint8, error) {
	s.half = false
	tens, ones := s.first, c
	if !isDigit(tens) || !isDigit(ones) {
		return 0, s.fail(ErrBadDigit, fmt.Sprintf("%q in %s %s", []byte{tens, ones}, s.event, s.state))
	}
	v := (tens-'0')*10 + (ones - '0')
	if v > limit {
		return 0, s.fail(ErrOutOfRange, fmt.Sprintf("%s %s %d > %d", s.event, s.state, v, limit))
	}
	return v, nil
}

func (s *textScanner) fail(kind error, detail string) error {
	return &Error{Kind: kind, Line: s.row, Column: s.col, Detail: detail}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
