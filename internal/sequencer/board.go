package sequencer

import (
	"log"

	"github.com/sweeney/som-sequencer/internal/gpio"
)

// Levels is the last logical level seen on (or written to) each line.
type Levels struct {
	Button   bool
	Rail     bool
	Liveness bool
	Aux      bool

	Buffer      bool
	SOMPower    bool
	SleepWake   bool
	UARTDisable bool
	PowerLED    bool
}

// board wraps the line set with logging and last-level bookkeeping.
// Line errors never reach the state graph: a failed read is a low level,
// a failed write is logged and the graph carries on.
type board struct {
	lines    *gpio.LineSet
	powerLED *gpio.LED
	levels   Levels
	debug    bool
}

func newBoard(lines *gpio.LineSet, cfg Config) *board {
	return &board{
		lines:    lines,
		powerLED: gpio.NewLED(lines.PowerLED, cfg.PowerLEDInverted),
		debug:    cfg.Debug,
		levels: Levels{
			Buffer:    true,
			SOMPower:  true,
			SleepWake: true,
		},
	}
}

func (b *board) notify(format string, args ...any) {
	if b.debug {
		log.Printf(format, args...)
	}
}

func (b *board) read(name string, in gpio.Input, last *bool) bool {
	v := false
	if in != nil {
		var err error
		v, err = in.Read()
		if err != nil {
			log.Printf("gpio read error (%s): %v", name, err)
			v = false
		}
	}
	*last = v
	return v
}

func (b *board) set(name string, out gpio.Output, on bool, last *bool) {
	*last = on
	if out == nil {
		return
	}
	if err := out.Set(on); err != nil {
		log.Printf("gpio write error (%s): %v", name, err)
	}
}

func (b *board) pressed() bool  { return b.read("button", b.lines.Button, &b.levels.Button) }
func (b *board) rail() bool     { return b.read("rail", b.lines.Rail, &b.levels.Rail) }
func (b *board) liveness() bool { return b.read("liveness", b.lines.Liveness, &b.levels.Liveness) }
func (b *board) aux() bool      { return b.read("aux", b.lines.Aux, &b.levels.Aux) }

func (b *board) setBuffer(on bool) {
	b.set("buffer", b.lines.Buffer, on, &b.levels.Buffer)
}

func (b *board) setSOMPower(on bool) {
	b.set("som-power", b.lines.SOMPower, on, &b.levels.SOMPower)
}

func (b *board) setSleepWake(on bool) {
	b.set("sleep-wake", b.lines.SleepWake, on, &b.levels.SleepWake)
}

func (b *board) setUARTDisable(on bool) {
	b.set("uart-disable", b.lines.UARTDisable, on, &b.levels.UARTDisable)
}

func (b *board) powerLEDOn()     { b.ledErr(b.powerLED.On()) }
func (b *board) powerLEDOff()    { b.ledErr(b.powerLED.Off()) }
func (b *board) powerLEDToggle() { b.ledErr(b.powerLED.Toggle()) }

func (b *board) ledErr(err error) {
	b.levels.PowerLED = b.powerLED.IsOn()
	if err != nil {
		log.Printf("gpio write error (power-led): %v", err)
	}
}

// prepareShutdown isolates the SOM from the controller and disables the UART.
// The UART stays disabled until the controller is externally reset, so this
// must only run on a real shutdown path.
func (b *board) prepareShutdown() {
	b.setBuffer(false)
	b.setUARTDisable(true)
}
