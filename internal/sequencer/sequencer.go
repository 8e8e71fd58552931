// Package sequencer contains the SOM power-sequencing state graph.
//
// The graph is driven one tick at a time by Step. It has no goroutines and never
// sleeps: every delay is a polled timer against the injected clock, so tests step
// it deterministically.
package sequencer

import (
	"log"
	"time"

	"github.com/sweeney/som-sequencer/internal/fsm"
	"github.com/sweeney/som-sequencer/internal/gpio"
	"github.com/sweeney/som-sequencer/internal/resetcause"
	"github.com/sweeney/som-sequencer/internal/timer"
)

type stateIDs struct {
	entry       fsm.StateID
	idle        fsm.StateID
	suspendingA fsm.StateID
	suspendingB fsm.StateID
	suspended   fsm.StateID
	startingA   fsm.StateID
	startingB   fsm.StateID
}

// Sequencer owns the state graph, its timers and the board lines it drives.
// It is not safe for concurrent use; Snapshot is the only way state leaves it.
type Sequencer struct {
	cfg     Config
	now     func() time.Time
	board   *board
	reset   resetcause.Querier
	machine *fsm.Machine
	ids     stateIDs

	entry *entryState

	bootCause   resetcause.Cause
	enteredAt   time.Time
	transitions int
	observer    func(fsm.Transition)
}

// New builds the state graph on lines and starts it in the entry state.
// The reset cause is queried once, on the first Step.
func New(cfg Config, lines *gpio.LineSet, reset resetcause.Querier, now func() time.Time) *Sequencer {
	if now == nil {
		now = time.Now
	}
	s := &Sequencer{
		cfg:     cfg,
		now:     now,
		board:   newBoard(lines, cfg),
		reset:   reset,
		machine: fsm.New(now),
	}
	b := s.board

	s.entry = &entryState{
		s:       s,
		preidle: timer.New(cfg.Preidle, now),
		blink:   newBlinker(cfg.SlowBlink, b, now),
	}

	m := s.machine
	s.ids = stateIDs{
		entry: m.AddState(StateEntry, s.entry),
		idle: m.AddState(StateIdle, &idleState{
			s:     s,
			holds: newHoldCounter(cfg.Debounce, now),
		}),
		suspendingA: m.AddState(StateSuspendingA, &suspendingAState{
			s:     s,
			blink: newBlinker(cfg.FastBlink, b, now),
			holds: newHoldCounter(cfg.Debounce, now),
		}),
		suspendingB: m.AddState(StateSuspendingB, &suspendingBState{
			s:       s,
			blink:   newBlinker(cfg.FastBlink, b, now),
			halting: timer.New(cfg.Halting, now),
		}),
		suspended: m.AddState(StateSuspended, &suspendedState{
			s:     s,
			holds: newHoldCounter(cfg.Debounce, now),
		}),
		startingA: m.AddState(StateStartingA, &startingAState{
			s:     s,
			blink: newBlinker(cfg.FastBlink, b, now),
		}),
		startingB: m.AddState(StateStartingB, &startingBState{
			s:       s,
			blink:   newBlinker(cfg.FastBlink, b, now),
			booting: timer.New(cfg.Booting, now),
		}),
	}

	m.OnTransition(s.handleTransition)
	m.Start(s.ids.entry)
	s.enteredAt = now()
	b.notify("state: %s", StateEntry)

	return s
}

// OnTransition registers fn to be called for every state change, from inside Step.
func (s *Sequencer) OnTransition(fn func(fsm.Transition)) {
	s.observer = fn
}

// Step runs one tick of the active state.
func (s *Sequencer) Step() {
	if err := s.machine.Run(); err != nil {
		log.Printf("sequencer: %v", err)
	}
}

// State returns the name of the active state.
func (s *Sequencer) State() string {
	return s.machine.CurrentName()
}

func (s *Sequencer) handleTransition(tr fsm.Transition) {
	s.transitions++
	s.enteredAt = tr.Time
	s.board.notify("state: %s -> %s", tr.From, tr.To)
	if s.observer != nil {
		s.observer(tr)
	}
}

// Snapshot is a point-in-time view of the sequencer.
type Snapshot struct {
	State           string
	EnteredAt       time.Time
	Transitions     int
	BootCause       resetcause.Cause
	PreidleDuration time.Duration
	Levels          Levels
}

// Snapshot returns the current state of the graph and the last line levels.
func (s *Sequencer) Snapshot() Snapshot {
	return Snapshot{
		State:           s.State(),
		EnteredAt:       s.enteredAt,
		Transitions:     s.transitions,
		BootCause:       s.bootCause,
		PreidleDuration: s.entry.preidle.Duration(),
		Levels:          s.board.levels,
	}
}
