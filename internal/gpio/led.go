package gpio

// LED wraps an output line and remembers its logical state, so it can be toggled
// without reading the line back. Inverted LEDs are lit by driving the line low.
type LED struct {
	out      Output
	inverted bool
	on       bool
}

// NewLED creates an LED on out. The LED starts logically off; the line is not
// written until the first On, Off or Toggle. A nil out gives an LED that only
// tracks its logical state.
func NewLED(out Output, inverted bool) *LED {
	return &LED{out: out, inverted: inverted}
}

// On lights the LED.
func (l *LED) On() error { return l.set(true) }

// Off darkens the LED.
func (l *LED) Off() error { return l.set(false) }

// Toggle flips the logical state.
func (l *LED) Toggle() error { return l.set(!l.on) }

// IsOn reports the logical state.
func (l *LED) IsOn() bool { return l.on }

func (l *LED) set(on bool) error {
	l.on = on
	if l.out == nil {
		return nil
	}
	return l.out.Set(on != l.inverted)
}
