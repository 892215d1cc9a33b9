package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/gpio"
	"github.com/sweeney/okay-to-wake/internal/ingest"
	"github.com/sweeney/okay-to-wake/internal/logic"
	"github.com/sweeney/okay-to-wake/internal/mqtt"
	"github.com/sweeney/okay-to-wake/internal/schedule"
	"github.com/sweeney/okay-to-wake/internal/status"
	"github.com/sweeney/okay-to-wake/internal/store"
	"github.com/sweeney/okay-to-wake/internal/web"
)

// monday is Monday 5 January 2026, midnight UTC.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

// earlyWeek wakes an hour before the defaults on weekdays.
const earlyWeek = "0515|0530|0600|2000\n0515|0530|0600|2000\n0515|0530|0600|2000\n" +
	"0515|0530|0600|2000\n0515|0530|0600|2000\n0715|0730|0800|2000\n0715|0730|0800|2000\n"

// rig is the daemon's runtime wiring with every device faked.
type rig struct {
	store    *store.FakeStore
	coord    *ingest.Coordinator
	detector *logic.Detector
	led      *gpio.FakeWriter
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
}

func newRig(t *testing.T, st *store.FakeStore) *rig {
	t.Helper()
	coord := ingest.New(st, zap.NewNop(), nil)
	if _, err := coord.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	r := &rig{
		store:    st,
		coord:    coord,
		detector: logic.NewDetector(monday),
		led:      gpio.NewFakeWriter(),
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(monday, status.Config{}),
	}
	r.tracker.SetChecksum(coord.Active().Checksum)
	coord.Notify(func(rep ingest.Report) {
		if rep.Err == nil && rep.Result.Changed {
			r.tracker.SetChecksum(rep.Result.Checksum)
		}
	})
	return r
}

// step runs one tick of the main loop at now.
func (r *rig) step(t *testing.T, now time.Time) {
	t.Helper()
	weekday := logic.WeekdayIndex(now)
	minute := logic.MinuteOfDay(now)
	state := r.coord.Classify(minute, weekday)
	event, ok := r.detector.Process(logic.Input{Time: now, State: state, Weekday: weekday, Minute: int(minute)})
	if ok {
		if err := r.led.Show(gpio.ColorFor(event.To)); err != nil {
			t.Fatalf("led: %v", err)
		}
		_ = r.pub.Publish(event)
	}
	cur, since := r.detector.CurrentState()
	r.tracker.Update(cur, since, weekday, int(minute), r.detector.Counts())
}

// run ticks every step from start for n ticks.
func (r *rig) run(t *testing.T, start time.Time, step time.Duration, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		r.step(t, start.Add(time.Duration(i)*step))
	}
}

func states(events []logic.Event) string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = logic.StateLabel(e.To)
	}
	return strings.Join(names, ",")
}

func TestIntegrationFullDayOnDefaults(t *testing.T) {
	r := newRig(t, store.NewFakeStore())

	r.run(t, monday, 5*time.Minute, 24*12)

	if got, want := states(r.pub.StateEvents()), "Sleep,Doze,Wake,Day,Sleep"; got != want {
		t.Fatalf("state sequence: got %s, want %s", got, want)
	}
	events := r.pub.StateEvents()
	wantTimes := []string{"00:00", "06:15", "06:30", "07:00", "18:45"}
	for i, want := range wantTimes {
		got := schedule.FromMinutes(schedule.Minutes(events[i].Minute)).String()
		if got != want {
			t.Errorf("event %d at %s, want %s", i, got, want)
		}
	}

	wantColors := []gpio.Color{gpio.Red, gpio.Blue, gpio.Green, gpio.Off, gpio.Red}
	if len(r.led.Shown) != len(wantColors) {
		t.Fatalf("LED writes: got %v", r.led.Shown)
	}
	for i, want := range wantColors {
		if r.led.Shown[i] != want {
			t.Errorf("LED write %d: got %s, want %s", i, r.led.Shown[i], want)
		}
	}

	// Erased storage was repaired once at boot, and never touched again.
	if r.store.WriteCount() != 1 {
		t.Errorf("store writes: got %d, want 1", r.store.WriteCount())
	}
}

func TestIntegrationWeekendDiffersFromWeekday(t *testing.T) {
	st := store.NewFakeStore()
	r := newRig(t, st)
	if _, err := r.coord.IngestFrom("test", []byte(earlyWeek), "text"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	saturday := monday.AddDate(0, 0, 5)
	r.run(t, saturday.Add(5*time.Hour+30*time.Minute), time.Minute, 1)
	if got := states(r.pub.StateEvents()); got != "Sleep" {
		t.Errorf("Saturday 05:30: got %s, want Sleep", got)
	}

	r2 := newRig(t, st)
	r2.run(t, monday.Add(5*time.Hour+30*time.Minute), time.Minute, 1)
	if got := states(r2.pub.StateEvents()); got != "Wake" {
		t.Errorf("Monday 05:30: got %s, want Wake", got)
	}
}

func TestIntegrationHTTPUploadChangesLight(t *testing.T) {
	r := newRig(t, store.NewFakeStore())
	srv := web.New(":0", r.tracker, r.coord, prometheus.NewRegistry(), zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// 05:45 on the defaults is still Sleep.
	r.step(t, monday.Add(5*time.Hour+45*time.Minute))

	resp, err := http.Post(ts.URL+"/schedule?kind=text", "text/plain", strings.NewReader(earlyWeek))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var body web.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !body.Changed {
		t.Fatalf("upload: status %d body %+v", resp.StatusCode, body)
	}

	// Next tick picks up the new schedule: Wake.
	r.step(t, monday.Add(5*time.Hour+46*time.Minute))
	if got := states(r.pub.StateEvents()); got != "Sleep,Wake" {
		t.Errorf("state sequence: got %s, want Sleep,Wake", got)
	}
	if last := r.led.Last(); last != gpio.Green {
		t.Errorf("LED: got %s, want %s", last, gpio.Green)
	}

	// The status endpoint reports the new checksum.
	resp, err = http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var st status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Status.Schedule.Checksum != body.Checksum {
		t.Errorf("status checksum %s, upload checksum %s", st.Status.Schedule.Checksum, body.Checksum)
	}
	if st.Status.State != "Wake" {
		t.Errorf("status state: got %s, want Wake", st.Status.State)
	}
}

// yamlWeek renders the same day for every weekday as a YAML document.
func yamlWeek(doze, wake, day, sleep [2]int) string {
	var sb strings.Builder
	for d := 0; d < schedule.DaysPerWeek; d++ {
		fmt.Fprintf(&sb, "%s:\n", schedule.DocumentKey(d))
		for _, b := range []struct {
			name string
			t    [2]int
		}{{"doze", doze}, {"wake", wake}, {"day", day}, {"sleep", sleep}} {
			fmt.Fprintf(&sb, "  %s: {hours: %d, minutes: %d}\n", b.name, b.t[0], b.t[1])
		}
	}
	return sb.String()
}

func TestIntegrationMQTTScheduleRouting(t *testing.T) {
	r := newRig(t, store.NewFakeStore())
	topics := mqtt.NewTopics("")

	// A partial document is rejected and the defaults stay active.
	partial := `{"monday": {"doze": {"hours": 5, "minutes": 0}, "wake": {"hours": 5, "minutes": 30},
		"day": {"hours": 6, "minutes": 0}, "sleep": {"hours": 21, "minutes": 0}}}`
	kind, ok := topics.KindFor(topics.Schedule + "/json")
	if !ok {
		t.Fatal("schedule/json should be a schedule topic")
	}
	if _, err := r.coord.IngestFrom("mqtt", []byte(partial), kind); err == nil {
		t.Fatal("expected partial document to be rejected")
	}
	if r.coord.Active().Checksum != schedule.DefaultWeek().Checksum {
		t.Error("rejected document changed the active schedule")
	}

	kind, ok = topics.KindFor(topics.Schedule + "/yaml")
	if !ok {
		t.Fatal("schedule/yaml should be a schedule topic")
	}
	doc := yamlWeek([2]int{5, 0}, [2]int{5, 30}, [2]int{6, 0}, [2]int{21, 0})
	res, err := r.coord.IngestFrom("mqtt", []byte(doc), kind)
	if err != nil {
		t.Fatalf("ingest yaml: %v", err)
	}
	if !res.Changed {
		t.Error("expected yaml schedule to change the active schedule")
	}
	r.step(t, monday.AddDate(0, 0, 6).Add(5*time.Hour+10*time.Minute))
	if got := states(r.pub.StateEvents()); got != "Doze" {
		t.Errorf("Sunday 05:10: got %s, want Doze", got)
	}

	if _, ok := topics.KindFor(topics.State); ok {
		t.Error("state topic must not be treated as a schedule")
	}
}

func TestIntegrationScheduleSurvivesReboot(t *testing.T) {
	st := store.NewFakeStore()
	r := newRig(t, st)
	res, err := r.coord.IngestFrom("test", []byte(earlyWeek), "text")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	writes := st.WriteCount()

	// Power cycle: a fresh coordinator over the same storage.
	rebooted := newRig(t, st)
	if got := rebooted.coord.Active().Checksum; got != res.Checksum {
		t.Errorf("checksum after reboot: got %08x, want %08x", got, res.Checksum)
	}
	if st.WriteCount() != writes {
		t.Error("booting a valid record should not write")
	}
}

func TestIntegrationCorruptedStorageFallsBackToDefaults(t *testing.T) {
	st := store.NewFakeStoreWith(schedule.DefaultWeek())
	st.Region[3] ^= 0x01

	r := newRig(t, st)
	if r.coord.Active().Checksum != schedule.DefaultWeek().Checksum {
		t.Error("expected defaults after corruption")
	}
	if st.WriteCount() != 1 {
		t.Errorf("store writes: got %d, want 1", st.WriteCount())
	}
	r.run(t, monday.Add(6*time.Hour+20*time.Minute), time.Minute, 1)
	if got := states(r.pub.StateEvents()); got != "Doze" {
		t.Errorf("state: got %s, want Doze", got)
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	r := newRig(t, store.NewFakeStore())
	r.run(t, monday.Add(6*time.Hour+29*time.Minute), time.Minute, 2)

	if len(r.pub.Payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(r.pub.Payloads))
	}
	var p mqtt.Payload
	if err := json.Unmarshal(r.pub.Payloads[1], &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := mqtt.LightPayload{
		Timestamp: "2026-01-05T06:30:00Z",
		State:     "Wake",
		From:      "Doze",
		Weekday:   "Mon",
		Time:      "06:30",
	}
	if p.Light != want {
		t.Errorf("payload: got %+v, want %+v", p.Light, want)
	}
}

func TestIntegrationStartupThenShutdownPayloads(t *testing.T) {
	r := newRig(t, store.NewFakeStore())

	startup := status.FormatStatusEvent(r.tracker.Snapshot(), "STARTUP", "")
	if err := r.pub.PublishSystem(mqtt.SystemEvent{Timestamp: monday, Event: "STARTUP", Retained: true, RawPayload: startup}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	r.run(t, monday.Add(7*time.Hour), time.Minute, 3)

	shutdown := status.FormatStatusEvent(r.tracker.Snapshot(), "SHUTDOWN", "SIGTERM")
	if err := r.pub.PublishSystem(mqtt.SystemEvent{Timestamp: monday, Event: "SHUTDOWN", Reason: "SIGTERM", Retained: true, RawPayload: shutdown}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var first, last status.StatusJSON
	if err := json.Unmarshal(r.pub.SystemPayloads[0], &first); err != nil {
		t.Fatalf("unmarshal startup: %v", err)
	}
	if err := json.Unmarshal(r.pub.SystemPayloads[1], &last); err != nil {
		t.Fatalf("unmarshal shutdown: %v", err)
	}

	if first.Status.Event != "STARTUP" || first.Status.State != "UNKNOWN" || first.Status.Ready {
		t.Errorf("startup: got %+v", first.Status)
	}
	if last.Status.Event != "SHUTDOWN" || last.Status.Reason != "SIGTERM" {
		t.Errorf("shutdown: got event %q reason %q", last.Status.Event, last.Status.Reason)
	}
	if last.Status.State != "Day" || last.Status.Time != "07:02" {
		t.Errorf("shutdown state: got %s at %s", last.Status.State, last.Status.Time)
	}
	wantSum := fmt.Sprintf("%08x", schedule.DefaultWeek().Checksum)
	if last.Status.Schedule.Checksum != wantSum {
		t.Errorf("checksum: got %s, want %s", last.Status.Schedule.Checksum, wantSum)
	}
}
