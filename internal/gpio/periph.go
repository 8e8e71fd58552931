package gpio

import (
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// periphInput reads a pin registered with periph.io.
type periphInput struct {
	pin       pgpio.PinIO
	activeLow bool
}

func (in *periphInput) Read() (bool, error) {
	return bool(in.pin.Read()) != in.activeLow, nil
}

// periphOutput drives a pin registered with periph.io.
type periphOutput struct {
	name string
	pin  pgpio.PinIO
}

func (out *periphOutput) Set(on bool) error {
	if err := out.pin.Out(pgpio.Level(on)); err != nil {
		return fmt.Errorf("set %s: %w", out.name, err)
	}
	return nil
}

// OpenPeriph opens every sequencer line through periph.io, addressing pins as
// "GPIO<n>". It is used on boards where the character device is unavailable.
func OpenPeriph(p Pins) (*LineSet, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: host init failed: %w", err)
	}

	s := &LineSet{}
	for _, l := range s.inputLines(p) {
		pin, err := periphPin(l.name, l.offset)
		if err != nil {
			return nil, err
		}
		if err := pin.In(pgpio.PullNoChange, pgpio.NoEdge); err != nil {
			return nil, fmt.Errorf("gpio: configure %s as input: %w", l.name, err)
		}
		*l.dst = &periphInput{pin: pin, activeLow: l.activeLow}
	}
	for _, l := range s.outputLines(p) {
		pin, err := periphPin(l.name, l.offset)
		if err != nil {
			return nil, err
		}
		if err := pin.Out(pgpio.Level(l.init)); err != nil {
			return nil, fmt.Errorf("gpio: configure %s as output: %w", l.name, err)
		}
		*l.dst = &periphOutput{name: l.name, pin: pin}
	}
	return s, nil
}

func periphPin(name string, n int) (pgpio.PinIO, error) {
	pinName := fmt.Sprintf("GPIO%d", n)
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("gpio: failed to open %s (%s)", pinName, name)
	}
	return pin, nil
}
