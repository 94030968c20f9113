package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealSerialMux opens the panel tether at path and wraps it in a SerialMux.
// Options are normalized first so a zero-value PortOptions yields the 115200
// 8N1 console most panel firmwares ship with.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, fmt.Errorf("invalid tether options for %s: %w", path, err)
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open panel tether %s: %w", path, err)
	}

	return NewSerialMux[serial.Port](port), nil
}
