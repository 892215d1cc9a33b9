package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/okay-to-wake/internal/logic"
	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Since         string       `json:"since,omitempty"`
	Weekday       string       `json:"weekday"`
	Time          string       `json:"time"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"transition_counts"`
	Schedule      ScheduleJSON `json:"schedule"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	Doze  int `json:"doze"`
	Wake  int `json:"wake"`
	Day   int `json:"day"`
	Sleep int `json:"sleep"`
}

// ScheduleJSON reports the active schedule and ingestion history.
type ScheduleJSON struct {
	Checksum   string `json:"checksum"`
	Changed    int    `json:"changed"`
	Unchanged  int    `json:"unchanged"`
	Rejected   int    `json:"rejected"`
	Failed     int    `json:"failed"`
	LastSource string `json:"last_source,omitempty"`
	LastUpdate string `json:"last_update,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Timezone    string `json:"timezone"`
	Broker      string `json:"broker"`
	Topic       string `json:"topic"`
	HTTPAddr    string `json:"http_addr"`
	Storage     string `json:"storage"`
	FetchURL    string `json:"fetch_url,omitempty"`
	WatchPath   string `json:"watch_path,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         "UNKNOWN",
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Doze:  snap.Counts.Doze,
			Wake:  snap.Counts.Wake,
			Day:   snap.Counts.Day,
			Sleep: snap.Counts.Sleep,
		},
		Schedule: ScheduleJSON{
			Checksum:   fmt.Sprintf("%08x", snap.Checksum),
			Changed:    snap.Ingests.Changed,
			Unchanged:  snap.Ingests.Unchanged,
			Rejected:   snap.Ingests.Rejected,
			Failed:     snap.Ingests.Failed,
			LastSource: snap.Ingests.LastSource,
			LastUpdate: formatTime(snap.Ingests.LastAt),
			LastError:  snap.Ingests.LastError,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Timezone:    snap.Config.Timezone,
			Broker:      snap.Config.Broker,
			Topic:       snap.Config.Topic,
			HTTPAddr:    snap.Config.HTTPAddr,
			Storage:     snap.Config.Storage,
			FetchURL:    snap.Config.FetchURL,
			WatchPath:   snap.Config.WatchPath,
		},
	}
	if snap.Ready() {
		inner.State = logic.StateLabel(snap.State)
		inner.Since = formatTime(snap.Since)
		inner.Weekday = schedule.WeekdayName(snap.Weekday)
		inner.Time = schedule.FromMinutes(schedule.Minutes(snap.Minute)).String()
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
