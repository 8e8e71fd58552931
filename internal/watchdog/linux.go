//go:build linux

package watchdog

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Device is a Linux watchdog opened through its device node.
type Device struct {
	f *os.File
}

// Open opens the watchdog device and arms it with timeout (rounded up to whole
// seconds). Opening the node starts the countdown.
func Open(path string, timeout time.Duration) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog: %w", err)
	}

	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		f.Close()
		return nil, fmt.Errorf("arm watchdog %ds: %w", secs, err)
	}

	return &Device{f: f}, nil
}

// Feed restarts the countdown.
func (d *Device) Feed() error {
	if err := unix.IoctlSetInt(int(d.f.Fd()), unix.WDIOC_KEEPALIVE, 0); err != nil {
		return fmt.Errorf("feed watchdog: %w", err)
	}
	return nil
}

// Close writes the magic character so drivers without nowayout disarm, then
// closes the device.
func (d *Device) Close() error {
	var errs []error
	if _, err := d.f.Write([]byte("V")); err != nil {
		errs = append(errs, fmt.Errorf("magic close: %w", err))
	}
	if err := d.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close watchdog: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}
