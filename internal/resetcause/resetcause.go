// Package resetcause reports why the controller last started.
//
// On Linux the sequencer process is the "controller": a graceful exit leaves a
// marker on tmpfs, so the next start reports Soft; a watchdog-triggered reboot
// is read from the watchdog's bootstatus; anything else is a cold PowerOn.
package resetcause

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
)

// Cause is the reason for the last controller start.
type Cause int

const (
	PowerOn Cause = iota
	Soft
	External
	Watchdog
)

func (c Cause) String() string {
	switch c {
	case PowerOn:
		return "POWER_ON"
	case Soft:
		return "SOFT"
	case External:
		return "EXTERNAL"
	case Watchdog:
		return "WATCHDOG"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// Querier reports the reset cause.
type Querier interface {
	ResetCause() Cause
}

// Default locations.
const (
	DefaultMarkerPath     = "/run/som-sequencer.soft"
	DefaultBootStatusPath = "/sys/class/watchdog/watchdog0/bootstatus"
)

// System derives the reset cause from a soft-restart marker and the watchdog
// bootstatus. Missing or unreadable files are treated as a cold start.
type System struct {
	MarkerPath     string
	BootStatusPath string
}

// NewSystem creates a System querier using the given paths; empty paths use the defaults.
func NewSystem(markerPath, bootStatusPath string) *System {
	if markerPath == "" {
		markerPath = DefaultMarkerPath
	}
	if bootStatusPath == "" {
		bootStatusPath = DefaultBootStatusPath
	}
	return &System{MarkerPath: markerPath, BootStatusPath: bootStatusPath}
}

// ResetCause consumes the soft-restart marker if present. The marker is removed
// so that a later crash is not mistaken for a deliberate restart.
func (s *System) ResetCause() Cause {
	if _, err := os.Stat(s.MarkerPath); err == nil {
		if err := os.Remove(s.MarkerPath); err != nil {
			log.Printf("resetcause: remove marker: %v", err)
		}
		return Soft
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Printf("resetcause: stat marker: %v", err)
	}

	data, err := os.ReadFile(s.BootStatusPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("resetcause: read bootstatus: %v", err)
		}
		return PowerOn
	}
	status, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Printf("resetcause: parse bootstatus %q: %v", strings.TrimSpace(string(data)), err)
		return PowerOn
	}
	if watchdogReset(status) {
		return Watchdog
	}
	return PowerOn
}

// MarkSoft records that the next start follows a deliberate restart.
func (s *System) MarkSoft() error {
	if err := os.WriteFile(s.MarkerPath, []byte("soft\n"), 0o644); err != nil {
		return fmt.Errorf("write soft-restart marker: %w", err)
	}
	return nil
}

// Fake returns a fixed cause and counts queries.
type Fake struct {
	Cause   Cause
	Queries int
}

// ResetCause returns f.Cause.
func (f *Fake) ResetCause() Cause {
	f.Queries++
	return f.Cause
}
