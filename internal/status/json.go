package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	InStateSeconds int64        `json:"in_state_seconds"`
	Transitions    int          `json:"transitions"`
	BootCause      string       `json:"boot_cause"`
	PreidleMs      int64        `json:"preidle_ms"`
	Lines          LinesJSON    `json:"lines"`
	WatchdogFeeds  int          `json:"watchdog_feeds"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// LinesJSON reports the last logical level of each board line.
type LinesJSON struct {
	Button      bool `json:"button"`
	Rail        bool `json:"rail"`
	Liveness    bool `json:"liveness"`
	Aux         bool `json:"aux"`
	Buffer      bool `json:"buffer"`
	SOMPower    bool `json:"som_power"`
	SleepWake   bool `json:"sleep_wake"`
	UARTDisable bool `json:"uart_disable"`
	PowerLED    bool `json:"power_led"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Dropped   int    `json:"dropped"`
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
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Backend     string `json:"backend"`
	Watchdog    string `json:"watchdog,omitempty"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	WSBroker    string `json:"ws_broker,omitempty"`
	Debug       bool   `json:"debug"`
}

func buildInner(snap Snapshot) StatusInner {
	seq := snap.Sequencer
	state := seq.State
	if state == "" {
		state = "UNKNOWN"
	}
	lv := seq.Levels

	return StatusInner{
		State:          state,
		InStateSeconds: int64(snap.InState().Truncate(time.Second).Seconds()),
		Transitions:    seq.Transitions,
		BootCause:      seq.BootCause.String(),
		PreidleMs:      seq.PreidleDuration.Milliseconds(),
		Lines: LinesJSON{
			Button:      lv.Button,
			Rail:        lv.Rail,
			Liveness:    lv.Liveness,
			Aux:         lv.Aux,
			Buffer:      lv.Buffer,
			SOMPower:    lv.SOMPower,
			SleepWake:   lv.SleepWake,
			UARTDisable: lv.UARTDisable,
			PowerLED:    lv.PowerLED,
		},
		WatchdogFeeds: snap.Feeds,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Dropped: snap.Dropped},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Backend:     snap.Config.Backend,
			Watchdog:    snap.Config.Watchdog,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			WSBroker:    snap.Config.WSBroker,
			Debug:       snap.Config.Debug,
		},
	}
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
