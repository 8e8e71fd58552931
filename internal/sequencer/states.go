package sequencer

import (
	"time"

	"github.com/sweeney/som-sequencer/internal/fsm"
	"github.com/sweeney/som-sequencer/internal/resetcause"
	"github.com/sweeney/som-sequencer/internal/timer"
)

// State names, as reported in logs, status and telemetry.
const (
	StateEntry       = "entry"
	StateIdle        = "idle"
	StateSuspendingA = "suspending_a"
	StateSuspendingB = "suspending_b"
	StateSuspended   = "suspended"
	StateStartingA   = "starting_a"
	StateStartingB   = "starting_b"
)

// blinker toggles the power LED at a fixed rate.
type blinker struct {
	t *timer.Timer
	b *board
}

func (bl blinker) tick() {
	if bl.t.RepeatExecution() {
		bl.b.powerLEDToggle()
	}
}

// holdCounter counts debounce pulses while the button stays pressed.
type holdCounter struct {
	t     *timer.Timer
	count int
}

// update samples the button and returns the current count. A release zeroes it.
func (h *holdCounter) update(b *board) int {
	pressed := b.pressed()
	if h.t.DebounceSignal(pressed) {
		h.count++
		b.notify("BUTTON %d", h.count)
	}
	if !pressed {
		h.count = 0
	}
	return h.count
}

func (h *holdCounter) reset() {
	h.count = 0
	h.t.Reset()
}

// entryState decides where to go after a controller start and waits out the
// preidle delay before going there.
type entryState struct {
	s       *Sequencer
	preidle *timer.Timer
	blink   blinker
	target  fsm.StateID
}

func (st *entryState) Tick(m *fsm.Machine) {
	b := st.s.board
	if m.ExecuteOnce() {
		rail := b.rail()
		cause := st.s.reset.ResetCause()
		st.s.bootCause = cause
		st.preidle.SetDuration(st.s.cfg.Preidle)

		switch {
		case rail && cause == resetcause.Soft:
			b.notify("boot: soft reset with SOM powered, resuming")
			st.target = st.s.ids.idle
		case rail && !b.aux():
			b.notify("boot: SOM powered and running, resuming")
			st.target = st.s.ids.idle
		default:
			b.prepareShutdown()
			b.setSOMPower(false)
			if rail {
				// The controller restarted underneath a powered SOM; give it time
				// to drain before it may be powered again.
				st.preidle.SetDuration(st.s.cfg.ColdBootCooldown)
				b.notify("boot: unexpected restart (%s) with SOM powered, cooling down %v", cause, st.preidle.Duration())
			} else {
				b.notify("boot: cold start (%s)", cause)
			}
			st.target = st.s.ids.suspended
		}
		st.preidle.Start()
	}

	st.blink.tick()

	if st.preidle.Finished() {
		m.ForceTransitionTo(st.target)
	}
}

type idleState struct {
	s     *Sequencer
	holds holdCounter
}

func (st *idleState) Tick(m *fsm.Machine) {
	b := st.s.board
	if m.ExecuteOnce() {
		b.powerLEDOn()
		// SOM can reset the controller through the buffer from here on.
		b.setBuffer(true)
		st.holds.reset()
	}

	if st.holds.update(b) > st.s.cfg.ShutdownHolds {
		st.holds.reset()
		m.ForceTransitionTo(st.s.ids.suspendingA)
		return
	}

	if !b.liveness() {
		b.notify("SOM signalled shutdown")
		m.ForceTransitionTo(st.s.ids.suspendingA)
	}
}

type suspendingAState struct {
	s     *Sequencer
	blink blinker
	holds holdCounter
}

func (st *suspendingAState) Tick(m *fsm.Machine) {
	b := st.s.board
	if m.ExecuteOnce() {
		b.prepareShutdown()
		// Ask the SOM to shut down.
		b.setSleepWake(false)
		st.holds.reset()
	}

	st.blink.tick()

	if st.holds.update(b) > st.s.cfg.KillHolds {
		b.notify("forced power off")
		st.holds.reset()
		m.ForceTransitionTo(st.s.ids.suspended)
		return
	}

	// SOM acknowledged and is shutting down.
	if !b.liveness() {
		m.ForceTransitionTo(st.s.ids.suspendingB)
	}
}

type suspendingBState struct {
	s       *Sequencer
	blink   blinker
	halting *timer.Timer
}

func (st *suspendingBState) Tick(m *fsm.Machine) {
	if m.ExecuteOnce() {
		st.halting.Start()
	}

	st.blink.tick()

	if st.halting.Finished() {
		m.ForceTransitionTo(st.s.ids.suspended)
	}
}

type suspendedState struct {
	s     *Sequencer
	holds holdCounter
}

func (st *suspendedState) Tick(m *fsm.Machine) {
	b := st.s.board
	if m.ExecuteOnce() {
		b.powerLEDOff()
		b.setSOMPower(false)
		// Release the shutdown request.
		b.setSleepWake(true)
		st.holds.reset()
	}

	if st.holds.update(b) > st.s.cfg.PowerOnHolds {
		st.holds.reset()
		m.ForceTransitionTo(st.s.ids.startingA)
	}
}

type startingAState struct {
	s     *Sequencer
	blink blinker
}

func (st *startingAState) Tick(m *fsm.Machine) {
	b := st.s.board
	if m.ExecuteOnce() {
		b.setSOMPower(true)
	}

	st.blink.tick()

	live := b.liveness()
	rail := b.rail()
	if live && rail {
		m.ForceTransitionTo(st.s.ids.startingB)
	}
}

type startingBState struct {
	s       *Sequencer
	blink   blinker
	booting *timer.Timer
}

func (st *startingBState) Tick(m *fsm.Machine) {
	if m.ExecuteOnce() {
		st.booting.Start()
	}

	st.blink.tick()

	if st.booting.Finished() {
		m.ForceTransitionTo(st.s.ids.idle)
	}
}

func newBlinker(d time.Duration, b *board, now func() time.Time) blinker {
	return blinker{t: timer.New(d, now), b: b}
}

func newHoldCounter(d time.Duration, now func() time.Time) holdCounter {
	return holdCounter{t: timer.New(d, now)}
}
