// Package status provides a thread-safe status tracker for the som-sequencer daemon.
// The control loop writes to it once per tick; HTTP handlers and MQTT payload
// builders read copies.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/som-sequencer/internal/sequencer"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
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
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Backend     string
	Watchdog    string
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	Debug       bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Sequencer     sequencer.Snapshot
	Feeds         int
	Dropped       int
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

// InState returns how long the sequencer has been in its current state.
// Zero before the first update.
func (s Snapshot) InState() time.Duration {
	if s.Sequencer.EnteredAt.IsZero() {
		return 0
	}
	return s.Now.Sub(s.Sequencer.EnteredAt)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots. Tests only.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update records the sequencer view and the watchdog feed count.
// Called from runLoop on every tick.
func (t *Tracker) Update(seq sequencer.Snapshot, feeds int) {
	t.mu.Lock()
	t.snap.Sequencer = seq
	t.snap.Feeds = feeds
	t.mu.Unlock()
}

// SetDropped records how many telemetry messages were dropped.
func (t *Tracker) SetDropped(n int) {
	t.mu.Lock()
	t.snap.Dropped = n
	t.mu.Unlock()
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
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
