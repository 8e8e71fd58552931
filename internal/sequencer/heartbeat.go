package sequencer

import (
	"log"
	"time"

	"github.com/sweeney/som-sequencer/internal/gpio"
	"github.com/sweeney/som-sequencer/internal/timer"
	"github.com/sweeney/som-sequencer/internal/watchdog"
)

// Heartbeat feeds the watchdog and toggles the debug LED once per interval.
// It runs before every sequencer tick; if the loop wedges, the feeds stop and
// the hardware resets the board.
type Heartbeat struct {
	t   *timer.Timer
	led *gpio.LED
	wd  watchdog.Watchdog

	feeds int
}

// NewHeartbeat creates a heartbeat. led may be nil to keep the debug LED dark.
// The interval must be shorter than the watchdog timeout.
func NewHeartbeat(interval time.Duration, led *gpio.LED, wd watchdog.Watchdog, now func() time.Time) *Heartbeat {
	if wd == nil {
		wd = watchdog.Nop{}
	}
	return &Heartbeat{t: timer.New(interval, now), led: led, wd: wd}
}

// Tick feeds and blinks when the interval has elapsed.
func (h *Heartbeat) Tick() {
	if !h.t.RepeatExecution() {
		return
	}
	if err := h.wd.Feed(); err != nil {
		log.Printf("watchdog feed error: %v", err)
	} else {
		h.feeds++
	}
	if h.led != nil {
		if err := h.led.Toggle(); err != nil {
			log.Printf("gpio write error (debug-led): %v", err)
		}
	}
}

// Feeds returns the number of successful watchdog feeds.
func (h *Heartbeat) Feeds() int {
	return h.feeds
}
