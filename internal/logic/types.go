// Package logic contains the pure day-state logic for the wake-up light.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the lighting stage the device is signalling.
type State int

const (
	StateDoze State = iota
	StateWake
	StateDay
	StateSleep
	// StateUnknown means nothing has been reported yet (boot).
	StateUnknown
)

// States lists the four classifiable states.
var States = [4]State{StateDoze, StateWake, StateDay, StateSleep}

var stateLabels = [...]string{"Doze", "Wake", "Day", "Sleep"}

// OutOfBoundsLabel is reported for any value that is not a classifiable state.
const OutOfBoundsLabel = "State Out-of-Bounds"

// StateLabel returns the display label for s.
func StateLabel(s State) string {
	if s >= 0 && int(s) < len(stateLabels) {
		return stateLabels[s]
	}
	return OutOfBoundsLabel
}

func (s State) String() string {
	return StateLabel(s)
}

// Event is a change of the classified state, to be acted on once.
type Event struct {
	Timestamp time.Time
	From      State
	To        State
	Weekday   int
	Minute    int
}

// Input is a single classification sample.
type Input struct {
	Time    time.Time
	State   State
	Weekday int
	Minute  int
}

// TransitionCounts tracks how often each state was entered since startup.
type TransitionCounts struct {
	Doze  int
	Wake  int
	Day   int
	Sleep int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     State
	Counts    TransitionCounts
}
