// Package status provides a thread-safe status tracker for the okay-to-wake daemon.
// It is read by HTTP handlers and by the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/okay-to-wake/internal/logic"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	Timezone    string
	Broker      string
	Topic       string
	HTTPAddr    string
	Storage     string
	FetchURL    string
	WatchPath   string
}

// IngestOutcome classifies one schedule ingestion.
type IngestOutcome int

const (
	OutcomeChanged IngestOutcome = iota
	OutcomeUnchanged
	OutcomeRejected
	OutcomeFailed
)

// IngestStats summarizes schedule ingestions since startup.
type IngestStats struct {
	Changed   int
	Unchanged int
	Rejected  int
	Failed    int

	LastSource string
	LastAt     time.Time
	LastError  string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Since         time.Time
	Weekday       int
	Minute        int
	Counts        logic.TransitionCounts
	Checksum      uint32
	Ingests       IngestStats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether a state has been classified yet.
func (s Snapshot) Ready() bool {
	return s.State != logic.StateUnknown
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateUnknown,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the classified state and transition counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(state logic.State, since time.Time, weekday, minute int, counts logic.TransitionCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Since = since
	t.snap.Weekday = weekday
	t.snap.Minute = minute
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetChecksum records the checksum of the active schedule.
func (t *Tracker) SetChecksum(sum uint32) {
	t.mu.Lock()
	t.snap.Checksum = sum
	t.mu.Unlock()
}

// RecordIngest counts one ingestion from source. err is kept as the last
// error for rejected and failed outcomes.
func (t *Tracker) RecordIngest(source string, outcome IngestOutcome, err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in := &t.snap.Ingests
	switch outcome {
	case OutcomeChanged:
		in.Changed++
	case OutcomeUnchanged:
		in.Unchanged++
	case OutcomeRejected:
		in.Rejected++
	case OutcomeFailed:
		in.Failed++
	}
	in.LastSource = source
	in.LastAt = at
	if err != nil {
		in.LastError = err.Error()
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
