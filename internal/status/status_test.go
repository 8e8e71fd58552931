package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/som-sequencer/internal/resetcause"
	"github.com/sweeney/som-sequencer/internal/sequencer"
)

func idleSnapshot(enteredAt time.Time) sequencer.Snapshot {
	return sequencer.Snapshot{
		State:           sequencer.StateIdle,
		EnteredAt:       enteredAt,
		Transitions:     1,
		BootCause:       resetcause.Soft,
		PreidleDuration: 2 * time.Second,
		Levels: sequencer.Levels{
			Rail:      true,
			Liveness:  true,
			Buffer:    true,
			SOMPower:  true,
			SleepWake: true,
			PowerLED:  true,
		},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 5, DebounceMs: 1000, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 5 {
		t.Errorf("Config.PollMs: got %d, want 5", snap.Config.PollMs)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.Sequencer.State != "" {
		t.Errorf("expected no state initially, got %q", snap.Sequencer.State)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	entered := time.Date(2026, 1, 1, 0, 0, 2, 0, time.UTC)

	tr.Update(idleSnapshot(entered), 7)

	snap := tr.Snapshot()
	if snap.Sequencer.State != sequencer.StateIdle {
		t.Errorf("State: got %q, want %q", snap.Sequencer.State, sequencer.StateIdle)
	}
	if !snap.Sequencer.EnteredAt.Equal(entered) {
		t.Errorf("EnteredAt: got %v, want %v", snap.Sequencer.EnteredAt, entered)
	}
	if snap.Feeds != 7 {
		t.Errorf("Feeds: got %d, want 7", snap.Feeds)
	}
	if !snap.Sequencer.Levels.Liveness {
		t.Error("expected Liveness=true")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetDropped(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetDropped(3)
	if got := tr.Snapshot().Dropped; got != 3 {
		t.Errorf("Dropped: got %d, want 3", got)
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotInState(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Sequencer: idleSnapshot(start.Add(2 * time.Second)),
		StartTime: start,
		Now:       start.Add(time.Minute),
	}
	if snap.InState() != 58*time.Second {
		t.Errorf("InState: got %v, want 58s", snap.InState())
	}

	if (Snapshot{Now: start}).InState() != 0 {
		t.Error("InState should be zero before the first update")
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(fixed.Add(-time.Hour), Config{})
	tr.SetClock(func() time.Time { return fixed })

	if got := tr.Snapshot().Now; !got.Equal(fixed) {
		t.Errorf("Now: got %v, want %v", got, fixed)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(idleSnapshot(time.Now()), 1)

	snap1 := tr.Snapshot()

	next := idleSnapshot(time.Now())
	next.State = sequencer.StateSuspendingA
	next.Transitions = 2
	tr.Update(next, 2)

	// snap1 should still reflect old state
	if snap1.Sequencer.State != sequencer.StateIdle {
		t.Error("snapshot should be a copy; State was modified")
	}
	if snap1.Feeds != 1 {
		t.Error("snapshot should be a copy; Feeds was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Sequencer:     idleSnapshot(start.Add(2 * time.Second)),
		Feeds:         900,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 5, DebounceMs: 1000, HeartbeatMs: 1000, Backend: "cdev", Broker: "tcp://localhost:1883", HTTPPort: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != "idle" {
		t.Errorf("State: got %q, want idle", s.State)
	}
	if s.InStateSeconds != 898 {
		t.Errorf("InStateSeconds: got %d, want 898", s.InStateSeconds)
	}
	if s.BootCause != "SOFT" {
		t.Errorf("BootCause: got %q, want SOFT", s.BootCause)
	}
	if s.PreidleMs != 2000 {
		t.Errorf("PreidleMs: got %d, want 2000", s.PreidleMs)
	}
	if !s.Lines.SOMPower || !s.Lines.Rail || s.Lines.UARTDisable {
		t.Errorf("unexpected lines: %+v", s.Lines)
	}
	if s.WatchdogFeeds != 900 {
		t.Errorf("WatchdogFeeds: got %d, want 900", s.WatchdogFeeds)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Config.Backend != "cdev" {
		t.Errorf("Config.Backend: got %q, want cdev", s.Config.Backend)
	}
	// Event and Reason should be omitted
	if s.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", s.Event)
	}
	if s.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", s.Reason)
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.State != "UNKNOWN" {
		t.Errorf("State: got %q, want UNKNOWN", parsed.Status.State)
	}
	if parsed.Status.InStateSeconds != 0 {
		t.Errorf("InStateSeconds: got %d, want 0", parsed.Status.InStateSeconds)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Sequencer:     idleSnapshot(start),
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 5, DebounceMs: 1000, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.State != "idle" {
		t.Errorf("State: got %q, want idle", parsed.Status.State)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(idleSnapshot(time.Now()), i)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
			tr.SetDropped(i)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
