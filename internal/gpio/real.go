//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "som-sequencer"

// cdevInput reads a line requested from the GPIO character device.
type cdevInput struct {
	name string
	line *gpiocdev.Line
}

func (in *cdevInput) Read() (bool, error) {
	v, err := in.line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", in.name, err)
	}
	return v == 1, nil
}

func (in *cdevInput) Close() error {
	return in.line.Close()
}

// cdevOutput drives a line requested from the GPIO character device.
type cdevOutput struct {
	name string
	line *gpiocdev.Line
}

func (out *cdevOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := out.line.SetValue(v); err != nil {
		return fmt.Errorf("set %s: %w", out.name, err)
	}
	return nil
}

func (out *cdevOutput) Close() error {
	return out.line.Close()
}

type chipCloser struct{ chip *gpiocdev.Chip }

func (c chipCloser) Close() error { return c.chip.Close() }

// OpenCdev requests every sequencer line from the named chip (e.g. "gpiochip0").
// Outputs are requested with their startup levels so the SOM rail and the
// isolation buffer stay enabled across a controller restart.
func OpenCdev(chipName string, p Pins) (*LineSet, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &LineSet{}
	s.closers = append(s.closers, chipCloser{chip})

	for _, l := range s.inputLines(p) {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
		if l.activeLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(l.offset, opts...)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", l.name, l.offset, err)
		}
		in := &cdevInput{name: l.name, line: line}
		s.closers = append(s.closers, in)
		*l.dst = in
	}

	for _, l := range s.outputLines(p) {
		v := 0
		if l.init {
			v = 1
		}
		line, err := chip.RequestLine(l.offset, gpiocdev.AsOutput(v))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", l.name, l.offset, err)
		}
		out := &cdevOutput{name: l.name, line: line}
		s.closers = append(s.closers, out)
		*l.dst = out
	}

	return s, nil
}
