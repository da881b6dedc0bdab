//go:build linux

package smbus

import (
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

/*
i2c-dev SMBus ioctl bindings, see linux/i2c-dev.h and linux/i2c.h.
*/

const (
	i2cTimeout = 0x0702 // I2C_TIMEOUT, units of 10ms
	i2cSlave   = 0x0703 // I2C_SLAVE
	i2cSMBus   = 0x0720 // I2C_SMBUS

	smbusWrite = 0
	smbusRead  = 1

	smbusByteData  = 2
	smbusWordData  = 3
	smbusBlockData = 5
)

// smbusData mirrors union i2c_smbus_data: a count byte, the block and one
// byte of PEC headroom.
type smbusData [MaxBlockSize + 2]byte

// smbusIoctlData mirrors struct i2c_smbus_ioctl_data.
type smbusIoctlData struct {
	readWrite uint8
	command   uint8
	size      uint32
	data      unsafe.Pointer
}

// Devfs opens /dev/i2c-N character devices and talks SMBus through the
// I2C_SMBUS ioctl.
type Devfs struct {
	// Timeout is applied with I2C_TIMEOUT when non-zero. The kernel rounds
	// it to 10ms units.
	Timeout time.Duration
}

type devfsConn struct {
	mu   sync.Mutex
	f    *os.File
	addr uint16
}

// Open opens the adapter at path and binds it to the slave at addr.
func (d Devfs) Open(path string, addr uint16) (Conn, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open i2c-dev: %w", err)
	}
	fd := int(f.Fd())
	if err := unix.IoctlSetInt(fd, i2cSlave, int(addr)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("i2c set slave 0x%02x: %w", addr, err)
	}
	if d.Timeout > 0 {
		ticks := int((d.Timeout + 10*time.Millisecond - 1) / (10 * time.Millisecond))
		if err := unix.IoctlSetInt(fd, i2cTimeout, ticks); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("i2c set timeout: %w", err)
		}
	}
	return &devfsConn{f: f, addr: addr}, nil
}

func (c *devfsConn) transfer(rw uint8, cmd uint8, size uint32, data *smbusData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return ErrClosed
	}
	args := smbusIoctlData{readWrite: rw, command: cmd, size: size, data: unsafe.Pointer(data)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, c.f.Fd(), i2cSMBus, uintptr(unsafe.Pointer(&args)))
	runtime.KeepAlive(data)
	if errno != 0 {
		return fmt.Errorf("smbus ioctl cmd 0x%02x: %w", cmd, errno)
	}
	return nil
}

func (c *devfsConn) WriteWordData(cmd uint8, v uint16) error {
	var data smbusData
	binary.NativeEndian.PutUint16(data[:2], v)
	return c.transfer(smbusWrite, cmd, smbusWordData, &data)
}

func (c *devfsConn) ReadByteData(cmd uint8) (uint8, error) {
	var data smbusData
	if err := c.transfer(smbusRead, cmd, smbusByteData, &data); err != nil {
		return 0, err
	}
	return data[0], nil
}

func (c *devfsConn) WriteByteData(cmd uint8, v uint8) error {
	var data smbusData
	data[0] = v
	return c.transfer(smbusWrite, cmd, smbusByteData, &data)
}

func (c *devfsConn) WriteBlockData(cmd uint8, b []byte) error {
	if err := checkBlock(b); err != nil {
		return err
	}
	var data smbusData
	data[0] = byte(len(b))
	copy(data[1:], b)
	return c.transfer(smbusWrite, cmd, smbusBlockData, &data)
}

func (c *devfsConn) ReadBlockData(cmd uint8) ([]byte, error) {
	var data smbusData
	if err := c.transfer(smbusRead, cmd, smbusBlockData, &data); err != nil {
		return nil, err
	}
	n := int(data[0])
	if n > MaxBlockSize {
		n = MaxBlockSize
	}
	out := make([]byte, n)
	copy(out, data[1:1+n])
	return out, nil
}

func (c *devfsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f != nil {
		err := c.f.Close()
		c.f = nil
		return err
	}
	return nil
}
