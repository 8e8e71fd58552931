//go:build !linux

package gpio

import "errors"

// OpenCdev returns an error on non-Linux platforms.
func OpenCdev(chipName string, p Pins) (*LineSet, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}
