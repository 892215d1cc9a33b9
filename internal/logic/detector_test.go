package logic

import (
	"testing"
	"time"
)

func TestNewDetector(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(startTime)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if state, _ := d.CurrentState(); state != StateUnknown {
		t.Errorf("expected StateUnknown before first sample, got %s", state)
	}
	if !d.startTime.Equal(startTime) {
		t.Errorf("expected startTime %v, got %v", startTime, d.startTime)
	}
	if !d.lastHeartbeat.Equal(startTime) {
		t.Errorf("expected lastHeartbeat %v, got %v", startTime, d.lastHeartbeat)
	}
}

func TestFirstSampleAlwaysReports(t *testing.T) {
	now := time.Date(2026, 1, 5, 6, 20, 0, 0, time.UTC)
	d := NewDetector(now)

	event, ok := d.Process(Input{Time: now, State: StateDoze, Weekday: 0, Minute: 380})
	if !ok {
		t.Fatal("expected an event for the first sample")
	}
	if event.From != StateUnknown {
		t.Errorf("From: got %s, want %s", event.From, StateUnknown)
	}
	if event.To != StateDoze {
		t.Errorf("To: got %s, want Doze", event.To)
	}
	if event.Minute != 380 {
		t.Errorf("Minute: got %d, want 380", event.Minute)
	}
	if !event.Timestamp.Equal(now) {
		t.Errorf("unexpected timestamp: %v", event.Timestamp)
	}
}

func TestNoEventsForStableState(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	d.Process(Input{Time: now, State: StateDay})

	for i := 1; i <= 10; i++ {
		if _, ok := d.Process(Input{Time: now.Add(time.Duration(i) * 10 * time.Second), State: StateDay}); ok {
			t.Errorf("iteration %d: expected no event for stable state", i)
		}
	}
}

func TestMorningSequence(t *testing.T) {
	now := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	d := NewDetector(now)

	sequence := []State{StateSleep, StateSleep, StateDoze, StateDoze, StateWake, StateDay, StateDay, StateSleep}
	var got []Event
	for i, s := range sequence {
		if event, ok := d.Process(Input{Time: now.Add(time.Duration(i) * time.Minute), State: s}); ok {
			got = append(got, event)
		}
	}

	want := []struct{ from, to State }{
		{StateUnknown, StateSleep},
		{StateSleep, StateDoze},
		{StateDoze, StateWake},
		{StateWake, StateDay},
		{StateDay, StateSleep},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].From != w.from || got[i].To != w.to {
			t.Errorf("event %d: got %s->%s, want %s->%s", i, got[i].From, got[i].To, w.from, w.to)
		}
	}

	counts := d.Counts()
	if counts.Sleep != 2 || counts.Doze != 1 || counts.Wake != 1 || counts.Day != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}

	state, since := d.CurrentState()
	if state != StateSleep {
		t.Errorf("current state: got %s, want Sleep", state)
	}
	if !since.Equal(now.Add(7 * time.Minute)) {
		t.Errorf("since: got %v", since)
	}
}

func TestCheckHeartbeat(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	d := NewDetector(start)

	if hb := d.CheckHeartbeat(start.Add(time.Hour), 15*time.Minute); hb != nil {
		t.Error("expected no heartbeat before first state")
	}

	d.Process(Input{Time: start, State: StateSleep})

	if hb := d.CheckHeartbeat(start.Add(10*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected no heartbeat before interval")
	}

	hb := d.CheckHeartbeat(start.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", hb.Uptime)
	}
	if hb.State != StateSleep {
		t.Errorf("State: got %s, want Sleep", hb.State)
	}
	if hb.Counts.Sleep != 1 {
		t.Errorf("Counts.Sleep: got %d, want 1", hb.Counts.Sleep)
	}

	if hb := d.CheckHeartbeat(start.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected no heartbeat 5m after the previous one")
	}
	if hb := d.CheckHeartbeat(start.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected second heartbeat")
	}
}

func TestCheckHeartbeatDisabled(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	d := NewDetector(start)
	d.Process(Input{Time: start, State: StateDay})

	if hb := d.CheckHeartbeat(start.Add(24*time.Hour), 0); hb != nil {
		t.Error("expected no heartbeat with interval 0")
	}
	if hb := d.CheckHeartbeat(start.Add(24*time.Hour), -time.Minute); hb != nil {
		t.Error("expected no heartbeat with negative interval")
	}
}
