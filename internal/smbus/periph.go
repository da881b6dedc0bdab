package smbus

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Periph opens buses through the periph.io registry. periph.io/x/host/v3
// must have been initialised with host.Init beforehand.
//
// Transactions are framed as plain I2C transfers, so the adapter must
// support I2C_RDWR. SMBus-only host controllers need Devfs instead.
type Periph struct{}

// Open opens the bus registered under path (e.g. "/dev/i2c-1" or "1").
func (Periph) Open(path string, addr uint16) (Conn, error) {
	bus, err := i2creg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", path, err)
	}
	return &I2CConn{dev: &i2c.Dev{Bus: bus, Addr: addr}, closer: bus}, nil
}

// I2CConn runs SMBus transactions over an i2c.Bus.
type I2CConn struct {
	mu     sync.Mutex
	dev    *i2c.Dev
	closer interface{ Close() error }
}

// NewI2CConn wraps an already opened bus. Closing the returned Conn does
// not close bus.
func NewI2CConn(bus i2c.Bus, addr uint16) *I2CConn {
	return &I2CConn{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

func (c *I2CConn) tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return ErrClosed
	}
	if err := c.dev.Tx(w, r); err != nil {
		return fmt.Errorf("i2c tx cmd 0x%02x: %w", w[0], err)
	}
	return nil
}

func (c *I2CConn) WriteWordData(cmd uint8, v uint16) error {
	return c.tx([]byte{cmd, byte(v), byte(v >> 8)}, nil)
}

func (c *I2CConn) ReadByteData(cmd uint8) (uint8, error) {
	r := make([]byte, 1)
	if err := c.tx([]byte{cmd}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (c *I2CConn) WriteByteData(cmd uint8, v uint8) error {
	return c.tx([]byte{cmd, v}, nil)
}

func (c *I2CConn) WriteBlockData(cmd uint8, b []byte) error {
	if err := checkBlock(b); err != nil {
		return err
	}
	w := make([]byte, 0, len(b)+2)
	w = append(w, cmd, byte(len(b)))
	w = append(w, b...)
	return c.tx(w, nil)
}

// ReadBlockData reads the count byte and a full MaxBlockSize payload in one
// transfer, then trims to the reported count.
func (c *I2CConn) ReadBlockData(cmd uint8) ([]byte, error) {
	r := make([]byte, MaxBlockSize+1)
	if err := c.tx([]byte{cmd}, r); err != nil {
		return nil, err
	}
	n := int(r[0])
	if n > MaxBlockSize {
		n = MaxBlockSize
	}
	return r[1 : 1+n], nil
}

func (c *I2CConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dev = nil
	if c.closer != nil {
		err := c.closer.Close()
		c.closer = nil
		return err
	}
	return nil
}
