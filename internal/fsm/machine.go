// Package fsm is a small state-machine executor driven by an external loop.
//
// States are registered up front and addressed by the StateID returned from
// AddState. Each call to Run invokes exactly one state's Tick. A state learns
// that it has just been entered through ExecuteOnce, which is true only for the
// first Tick after a transition.
package fsm

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotStarted is returned by Run when no initial state has been set.
var ErrNotStarted = errors.New("fsm: no initial state")

// StateID identifies a registered state.
type StateID int

// State is the per-tick behaviour of a registered state.
type State interface {
	Tick(m *Machine)
}

// StateFunc adapts a plain function to State.
type StateFunc func(m *Machine)

// Tick calls f(m).
func (f StateFunc) Tick(m *Machine) { f(m) }

// Transition describes a requested state change.
type Transition struct {
	From string
	To   string
	Time time.Time
}

type entry struct {
	name  string
	state State
}

// Machine owns the registered states and the active one.
// It is not safe for concurrent use.
type Machine struct {
	states  []entry
	current StateID
	started bool

	// pending is set by a transition and consumed by the next Run.
	pending bool
	// entered is visible to the running Tick only.
	entered bool

	now      func() time.Time
	observer func(Transition)
}

// New creates an empty machine. If now is nil, time.Now is used for transition timestamps.
func New(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{now: now}
}

// AddState registers s under name and returns its handle.
func (m *Machine) AddState(name string, s State) StateID {
	m.states = append(m.states, entry{name: name, state: s})
	return StateID(len(m.states) - 1)
}

// OnTransition registers fn to be called synchronously for every forced transition.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.observer = fn
}

// Start selects the first state to run. Its Tick sees ExecuteOnce on the next Run.
func (m *Machine) Start(id StateID) {
	m.mustExist(id)
	m.current = id
	m.started = true
	m.pending = true
}

// ForceTransitionTo makes id the active state from the next Run on. It may be
// called from inside a Tick; the running Tick is not re-invoked. If it is called
// more than once in a tick, the last call wins.
func (m *Machine) ForceTransitionTo(id StateID) {
	m.mustExist(id)
	from := ""
	if m.started {
		from = m.states[m.current].name
	}
	m.current = id
	m.started = true
	m.pending = true
	if m.observer != nil {
		m.observer(Transition{From: from, To: m.states[id].name, Time: m.now()})
	}
}

// Run invokes the active state's Tick once.
func (m *Machine) Run() error {
	if !m.started {
		return ErrNotStarted
	}
	m.entered = m.pending
	m.pending = false
	m.states[m.current].state.Tick(m)
	m.entered = false
	return nil
}

// ExecuteOnce reports whether the running Tick is the first since its state was entered.
func (m *Machine) ExecuteOnce() bool {
	return m.entered
}

// Current returns the active state.
func (m *Machine) Current() StateID {
	return m.current
}

// CurrentName returns the name of the active state, or "" before Start.
func (m *Machine) CurrentName() string {
	if !m.started {
		return ""
	}
	return m.states[m.current].name
}

// Name returns the name id was registered with.
func (m *Machine) Name(id StateID) string {
	m.mustExist(id)
	return m.states[id].name
}

func (m *Machine) mustExist(id StateID) {
	if id < 0 || int(id) >= len(m.states) {
		panic(fmt.Sprintf("fsm: unknown state %d", id))
	}
}
