// Package timer provides a polled software timer for the sequencer's control loop.
// Nothing in this package blocks or sleeps; every method reads the injected clock
// once and compares the elapsed time against the configured duration.
package timer

import "time"

// Timer is a reusable, polled timer. It supports one-shot expiry (Start/Finished),
// window queries (Waiting), unconditional periodic pulses (RepeatExecution) and
// signal-gated periodic pulses (DebounceSignal).
//
// A Timer is not safe for concurrent use; it is owned by a single state.
type Timer struct {
	duration time.Duration
	now      func() time.Time

	startedAt time.Time
	started   bool

	lastPulse time.Time
	pulsing   bool
}

// New creates a timer with the given duration. If now is nil, time.Now is used.
func New(d time.Duration, now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{duration: d, now: now}
}

// Duration returns the configured duration.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// SetDuration changes the duration. It takes effect from the next comparison,
// so callers normally set it before Start.
func (t *Timer) SetDuration(d time.Duration) {
	t.duration = d
}

// Start records the current time as the reference point for Finished and Waiting.
func (t *Timer) Start() {
	t.startedAt = t.now()
	t.started = true
}

// Reset clears every reference point. The timer behaves as if it was never started.
func (t *Timer) Reset() {
	t.started = false
	t.pulsing = false
}

// Finished reports whether the duration has elapsed since the last Start.
// It keeps returning true until Start is called again.
func (t *Timer) Finished() bool {
	if !t.started {
		return false
	}
	return t.now().Sub(t.startedAt) >= t.duration
}

// Waiting reports whether the timer was started and the duration has not yet elapsed.
func (t *Timer) Waiting() bool {
	if !t.started {
		return false
	}
	return t.now().Sub(t.startedAt) < t.duration
}

// RepeatExecution returns true once per elapsed duration. The first call arms the
// timer. After a pulse the timer rearms at the time the pulse was observed.
func (t *Timer) RepeatExecution() bool {
	now := t.now()
	if !t.pulsing {
		t.pulsing = true
		t.lastPulse = now
		return t.duration <= 0
	}
	return t.pulse(now)
}

// DebounceSignal is RepeatExecution gated by raw. While raw is false the timer is
// disarmed and the call returns false. The first true call arms the timer and
// returns false; while raw stays true it returns true once per elapsed duration.
func (t *Timer) DebounceSignal(raw bool) bool {
	if !raw {
		t.pulsing = false
		return false
	}
	now := t.now()
	if !t.pulsing {
		t.pulsing = true
		t.lastPulse = now
		return false
	}
	return t.pulse(now)
}

func (t *Timer) pulse(now time.Time) bool {
	if now.Sub(t.lastPulse) >= t.duration {
		t.lastPulse = now
		return true
	}
	return false
}
