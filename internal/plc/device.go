// internal/plc/device.go
package plc

import (
	"errors"
	"fmt"
	"strconv"
)

// ParseDevice converts a symbolic word-device name ("D28") into its word
// address. Only the data-register area is addressable by this system; the
// letter prefix is kept for operator-facing config but carries no offset in
// the word-addressed memory model.
func ParseDevice(name string) (uint16, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("plc: device %q too short", name)
	}

	prefix := name[0]
	if prefix < 'A' || prefix > 'Z' {
		return 0, fmt.Errorf("plc: device %q must start with an area letter", name)
	}

	n, err := strconv.ParseUint(name[1:], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("plc: device %q has a bad word address: %w", name, err)
	}

	return uint16(n), nil
}

// ErrNotConnected is returned by register operations before Connect or after
// a connection-dropping I/O failure.
var ErrNotConnected = errors.New("plc: not connected")
