// Package smbus provides the SMBus transaction primitives the lighting
// controllers are driven through.
//
// Two backends are available: Devfs talks to the kernel's i2c-dev SMBus
// ioctl interface directly and works on host adapters that only implement
// SMBus (piix4, i801), while Periph frames the same transactions as plain
// I2C transfers over a periph.io bus.
package smbus

import "errors"

// MaxBlockSize is the SMBus 2.0 limit on a block transfer payload.
const MaxBlockSize = 32

var (
	// ErrBlockTooLarge is returned when a block write exceeds MaxBlockSize.
	ErrBlockTooLarge = errors.New("smbus: block exceeds 32 bytes")

	// ErrClosed is returned by transactions on a closed connection.
	ErrClosed = errors.New("smbus: connection closed")

	// ErrUnsupported is returned when a backend is not available on this platform.
	ErrUnsupported = errors.New("smbus: not supported on this platform")
)

// Conn is an open connection to one slave address on one bus.
//
// A Conn is not safe for concurrent use.
type Conn interface {
	// WriteWordData writes a 16 bit word at command offset cmd. The word is
	// sent low byte first.
	WriteWordData(cmd uint8, v uint16) error
	// ReadByteData reads one byte at command offset cmd.
	ReadByteData(cmd uint8) (uint8, error)
	// WriteByteData writes one byte at command offset cmd.
	WriteByteData(cmd uint8, v uint8) error
	// WriteBlockData writes a length-prefixed block at command offset cmd.
	WriteBlockData(cmd uint8, b []byte) error
	// ReadBlockData reads a length-prefixed block at command offset cmd. At
	// most MaxBlockSize bytes are returned.
	ReadBlockData(cmd uint8) ([]byte, error)
	// Close releases the connection.
	Close() error
}

// Opener opens a connection to the device at addr on the bus at path.
type Opener interface {
	Open(path string, addr uint16) (Conn, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string, addr uint16) (Conn, error)

func (f OpenerFunc) Open(path string, addr uint16) (Conn, error) { return f(path, addr) }

func checkBlock(b []byte) error {
	if len(b) > MaxBlockSize {
		return ErrBlockTooLarge
	}
	return nil
}
