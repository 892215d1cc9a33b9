package logic

import "time"

// Detector remembers the last reported state and reports changes.
type Detector struct {
	current       State
	since         time.Time
	startTime     time.Time
	counts        TransitionCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector that has not reported anything yet.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(startTime time.Time) *Detector {
	return &Detector{
		current:       StateUnknown,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a new classification and returns an event if it differs
// from the previously reported state. The first classification after
// startup always produces an event (From is StateUnknown).
func (d *Detector) Process(input Input) (Event, bool) {
	if input.State == d.current {
		return Event{}, false
	}

	event := Event{
		Timestamp: input.Time,
		From:      d.current,
		To:        input.State,
		Weekday:   input.Weekday,
		Minute:    input.Minute,
	}
	d.current = input.State
	d.since = input.Time

	switch input.State {
	case StateDoze:
		d.counts.Doze++
	case StateWake:
		d.counts.Wake++
	case StateDay:
		d.counts.Day++
	case StateSleep:
		d.counts.Sleep++
	}
	return event, true
}

// CurrentState returns the last reported state and when it was entered.
func (d *Detector) CurrentState() (State, time.Time) {
	return d.current, d.since
}

// Counts returns a copy of the transition counts.
func (d *Detector) Counts() TransitionCounts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if nothing has been reported yet,
// if the interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if d.current == StateUnknown {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		State:     d.current,
		Counts:    d.counts,
	}
}
