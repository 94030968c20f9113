package serialmux

import "io"

// SerialPorter is the minimal surface the mux needs from a tether: byte
// stream in, commands out, and a close. Keeping it this small lets the tests
// run against an in-memory port.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortMode carries the line parameters used when a factory opens a
// tether.
type SerialPortMode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// Parity selects the parity bit scheme for a tether.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits selects the stop bit count for a tether.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// DefaultSerialPortMode is the 115200 8N1 console most panel firmwares ship
// with.
func DefaultSerialPortMode() *SerialPortMode {
	return &SerialPortMode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}

// SerialPortFactory opens tethers. Injected where code must open a port so
// tests can substitute an in-memory one.
type SerialPortFactory interface {
	Open(path string, mode *SerialPortMode) (SerialPorter, error)
}
