// Package watchdog feeds a hardware watchdog from the control loop.
// If the loop stops reaching Feed for longer than the armed timeout, the
// hardware resets the board; that is the only recovery from a wedged loop.
package watchdog

import "time"

// DefaultDevice is the standard Linux watchdog device node.
const DefaultDevice = "/dev/watchdog"

// DefaultTimeout is the hardware timeout armed at startup.
const DefaultTimeout = 10 * time.Second

// Watchdog is an armed hardware watchdog.
type Watchdog interface {
	// Feed restarts the hardware countdown.
	Feed() error

	// Close disarms the watchdog where the driver allows it and releases it.
	Close() error
}

// Nop is a Watchdog that does nothing. It is used when no watchdog is configured.
type Nop struct{}

// Feed does nothing.
func (Nop) Feed() error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// Fake records feeds for test assertions.
type Fake struct {
	// Feeds counts calls to Feed.
	Feeds int

	// FeedError, if set, will be returned by Feed.
	FeedError error

	// Closed tracks if Close was called.
	Closed bool
}

// Feed records the call.
func (f *Fake) Feed() error {
	f.Feeds++
	return f.FeedError
}

// Close marks the watchdog as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
