//go:build linux

package resetcause

import "golang.org/x/sys/unix"

func watchdogReset(status int) bool {
	return status&unix.WDIOF_CARDRESET != 0
}
