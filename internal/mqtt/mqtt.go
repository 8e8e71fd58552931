// Package mqtt publishes sequencer telemetry with abstraction for testing.
// Telemetry is strictly outbound: nothing received from the broker reaches
// the state graph.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/som-sequencer/internal/fsm"
)

// Topic is the MQTT topic for state-graph events.
const Topic = "som/sequencer/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "som/sequencer/system"

// EventTransition is the event type of a state change.
const EventTransition = "TRANSITION"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state-graph event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a state-graph event.
type Event struct {
	Timestamp time.Time
	Type      string
	From      string
	To        string
}

// TransitionEvent converts an executor transition into an Event.
func TransitionEvent(tr fsm.Transition) Event {
	return Event{
		Timestamp: tr.Time,
		Type:      EventTransition,
		From:      tr.From,
		To:        tr.To,
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Sequencer SequencerPayload `json:"sequencer"`
}

// SequencerPayload contains the event details.
type SequencerPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

// FormatPayload creates the JSON payload for a state-graph event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Sequencer: SequencerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     event.Type,
			From:      event.From,
			To:        event.To,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
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

// Discard is a Publisher that drops everything. It is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(Event) error             { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
