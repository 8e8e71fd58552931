//go:build !linux

package resetcause

// WDIOF_CARDRESET from linux/watchdog.h.
const cardReset = 0x0020

func watchdogReset(status int) bool {
	return status&cardReset != 0
}
