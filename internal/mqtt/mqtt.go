// Package mqtt provides MQTT publishing and schedule subscription with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/okay-to-wake/internal/logic"
	"github.com/sweeney/okay-to-wake/internal/parse"
	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "home/okay-to-wake"

// Topics are the MQTT topics the daemon uses, all under one prefix.
type Topics struct {
	// State receives a message on every state change.
	State string
	// System receives lifecycle events (STARTUP, SHUTDOWN, HEARTBEAT, SCHEDULE).
	System string
	// Schedule is the prefix for inbound schedule payloads; the last
	// segment names the payload kind (text, json or yaml).
	Schedule string
}

// NewTopics builds the topic set under prefix. An empty prefix means DefaultPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		State:    prefix + "/state",
		System:   prefix + "/system",
		Schedule: prefix + "/schedule",
	}
}

// ScheduleFilters returns the subscriptions for inbound schedules, keyed by topic.
func (t Topics) ScheduleFilters() map[string]byte {
	return map[string]byte{
		t.Schedule + "/" + string(parse.KindText): 1,
		t.Schedule + "/" + string(parse.KindJSON): 1,
		t.Schedule + "/" + string(parse.KindYAML): 1,
	}
}

// KindFor returns the payload kind carried on topic, or false if topic is
// not a schedule topic.
func (t Topics) KindFor(topic string) (parse.Kind, bool) {
	suffix, ok := strings.CutPrefix(topic, t.Schedule+"/")
	if !ok {
		return "", false
	}
	switch parse.Kind(suffix) {
	case parse.KindText, parse.KindJSON, parse.KindYAML:
		return parse.Kind(suffix), true
	}
	return "", false
}

// ScheduleHandler receives a schedule payload from the broker.
type ScheduleHandler func(payload []byte, kind parse.Kind)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state change to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "SCHEDULE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the state message payload structure.
type Payload struct {
	Light LightPayload `json:"light"`
}

// LightPayload contains the state change details.
type LightPayload struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	From      string `json:"from"`
	Weekday   string `json:"weekday"`
	Time      string `json:"time"`
}

// FormatPayload creates the JSON payload for a state change.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Light: LightPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			State:     logic.StateLabel(event.To),
			From:      logic.StateLabel(event.From),
			Weekday:   schedule.WeekdayName(event.Weekday),
			Time:      schedule.FromMinutes(schedule.Minutes(event.Minute)).String(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
