package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/som-sequencer/internal/fsm"
)

func TestFormatPayload(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      EventTransition,
		From:      "idle",
		To:        "suspending_a",
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"sequencer":{"timestamp":"2026-02-02T22:18:12Z","event":"TRANSITION","from":"idle","to":"suspending_a"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadKeepsMilliseconds(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 250*int(time.Millisecond), time.UTC),
		Type:      EventTransition,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Sequencer.Timestamp != "2026-02-02T22:18:12.25Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Sequencer.Timestamp)
	}
}

func TestTransitionEvent(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 2, 0, time.UTC)
	e := TransitionEvent(fsm.Transition{From: "entry", To: "suspended", Time: at})

	if e.Type != EventTransition {
		t.Errorf("type: got %s, want %s", e.Type, EventTransition)
	}
	if e.From != "entry" || e.To != "suspended" {
		t.Errorf("unexpected from/to: %s -> %s", e.From, e.To)
	}
	if !e.Timestamp.Equal(at) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "som/sequencer/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "som/sequencer/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 19, 5, 51, 0, time.UTC),
		Event:     "OFFLINE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("reason field should be omitted when empty")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"state":"idle"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(Event{Timestamp: time.Now(), Type: EventTransition, From: "a", To: "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if f.Events[0].To != "b" {
		t.Errorf("unexpected event: %+v", f.Events[0])
	}
	if names := f.SystemEventNames(); len(names) != 1 || names[0] != "STARTUP" {
		t.Errorf("unexpected system events: %v", names)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated error")

	if err := f.Publish(Event{Type: EventTransition}); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("expected nothing recorded on error")
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()
	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	if err := p.Publish(Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if (Discard{}).IsConnected() {
		t.Error("discard is never connected")
	}
}
