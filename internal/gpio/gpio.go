// Package gpio provides the digital lines the sequencer drives and samples.
// The cdev backend uses the Linux GPIO character device, the periph backend
// addresses pins by name through periph.io, and the fakes allow testing
// without hardware.
//
// All values crossing these interfaces are logical: the backends map them to
// physical levels according to the wiring (active-low lines are requested as such).
package gpio

import (
	"errors"
	"fmt"
	"io"
)

// Input is a digital input line.
type Input interface {
	// Read returns the logical level of the line.
	Read() (bool, error)
}

// Output is a digital output line.
type Output interface {
	// Set drives the line to the given logical level.
	Set(on bool) error
}

// Pin definitions (BCM numbering on the controller header).
const (
	DefaultPinButton      = 2
	DefaultPinPowerLED    = 4
	DefaultPinSleepWake   = 7
	DefaultPinRail        = 8
	DefaultPinLiveness    = 9
	DefaultPinSOMPower    = 10
	DefaultPinAux         = 11
	DefaultPinUARTDisable = 12
	DefaultPinBuffer      = 18
	DefaultPinDebugLED    = 19
)

// Pins maps every sequencer line to a line offset on the chip.
type Pins struct {
	Button      int
	Rail        int
	Liveness    int
	Aux         int
	Buffer      int
	SOMPower    int
	SleepWake   int
	UARTDisable int
	PowerLED    int
	DebugLED    int

	// ButtonActiveLow is true when a pressed button pulls the line low.
	ButtonActiveLow bool
}

// DefaultPins returns the standard carrier-board wiring.
func DefaultPins() Pins {
	return Pins{
		Button:          DefaultPinButton,
		Rail:            DefaultPinRail,
		Liveness:        DefaultPinLiveness,
		Aux:             DefaultPinAux,
		Buffer:          DefaultPinBuffer,
		SOMPower:        DefaultPinSOMPower,
		SleepWake:       DefaultPinSleepWake,
		UARTDisable:     DefaultPinUARTDisable,
		PowerLED:        DefaultPinPowerLED,
		DebugLED:        DefaultPinDebugLED,
		ButtonActiveLow: true,
	}
}

// Startup levels for the outputs. SOM power enable and the isolation buffer are
// held high so the SOM keeps power while the controller itself restarts.
const (
	initBuffer      = true
	initSOMPower    = true
	initSleepWake   = true
	initUARTDisable = false
	initLED         = false
)

// LineSet holds the opened lines of one board.
type LineSet struct {
	Button   Input
	Rail     Input
	Liveness Input
	Aux      Input

	Buffer      Output
	SOMPower    Output
	SleepWake   Output
	UARTDisable Output
	PowerLED    Output
	DebugLED    Output

	closers []io.Closer
}

// Close releases every line. Output lines keep their last driven level where the
// backend allows it.
func (s *LineSet) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// inputLine and outputLine describe one line to open; backends iterate over them.
type inputLine struct {
	name      string
	offset    int
	activeLow bool
	dst       *Input
}

type outputLine struct {
	name   string
	offset int
	init   bool
	dst    *Output
}

func (s *LineSet) inputLines(p Pins) []inputLine {
	return []inputLine{
		{"button", p.Button, p.ButtonActiveLow, &s.Button},
		{"rail", p.Rail, false, &s.Rail},
		{"liveness", p.Liveness, false, &s.Liveness},
		{"aux", p.Aux, false, &s.Aux},
	}
}

func (s *LineSet) outputLines(p Pins) []outputLine {
	return []outputLine{
		{"buffer", p.Buffer, initBuffer, &s.Buffer},
		{"som-power", p.SOMPower, initSOMPower, &s.SOMPower},
		{"sleep-wake", p.SleepWake, initSleepWake, &s.SleepWake},
		{"uart-disable", p.UARTDisable, initUARTDisable, &s.UARTDisable},
		{"power-led", p.PowerLED, initLED, &s.PowerLED},
		{"debug-led", p.DebugLED, initLED, &s.DebugLED},
	}
}
