package sequencer

import "time"

// Config holds the timings and hold thresholds of the state graph.
// A hold threshold is exceeded when the number of debounce pulses counted while
// the button stays pressed is strictly greater than it.
type Config struct {
	Debounce         time.Duration // one pulse per Debounce of continuous press
	Preidle          time.Duration // settling delay in Entry before the first real state
	ColdBootCooldown time.Duration // Entry delay after the controller restarted under a powered SOM
	Halting          time.Duration // time the SOM gets to finish its shutdown
	Booting          time.Duration // time the SOM gets to boot before Idle
	FastBlink        time.Duration
	SlowBlink        time.Duration
	Heartbeat        time.Duration // debug LED toggle and watchdog feed interval

	PowerOnHolds  int // Suspended -> StartingA
	ShutdownHolds int // Idle -> SuspendingA
	KillHolds     int // SuspendingA -> Suspended

	PowerLEDInverted bool
	DebugLEDInverted bool

	// Debug enables state-graph notifications in the log.
	Debug bool
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Debounce:         1 * time.Second,
		Preidle:          2 * time.Second,
		ColdBootCooldown: 120 * time.Second,
		Halting:          15 * time.Second,
		Booting:          25 * time.Second,
		FastBlink:        100 * time.Millisecond,
		SlowBlink:        500 * time.Millisecond,
		Heartbeat:        1 * time.Second,
		PowerOnHolds:     1,
		ShutdownHolds:    1,
		KillHolds:        5,
		Debug:            true,
	}
}
