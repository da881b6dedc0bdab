//go:build !linux

package smbus

import "time"

type Devfs struct {
	Timeout time.Duration
}

func (d Devfs) Open(path string, addr uint16) (Conn, error) {
	return nil, ErrUnsupported
}
