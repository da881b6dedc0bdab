package aura

import (
	"math/bits"
	"strings"
	"sync"

	"github.com/coreman2200/funtimes-aurashow/internal/smbus"
)

// claims tracks which bus addresses have an open link in this process.
var claims = struct {
	sync.Mutex
	m map[BusAddress]struct{}
}{m: map[BusAddress]struct{}{}}

func claim(a BusAddress) bool {
	claims.Lock()
	defer claims.Unlock()
	if _, ok := claims.m[a]; ok {
		return false
	}
	claims.m[a] = struct{}{}
	return true
}

func release(a BusAddress) {
	claims.Lock()
	defer claims.Unlock()
	delete(claims.m, a)
}

// link is the exclusive register-level connection to one chip.
type link struct {
	addr BusAddress
	conn smbus.Conn
}

func openLink(o smbus.Opener, a BusAddress) (*link, error) {
	if !claim(a) {
		return nil, ErrAddressInUse
	}
	conn, err := o.Open(a.Path, a.Addr)
	if err != nil {
		release(a)
		return nil, &BusError{Addr: a, Op: "open", Err: err}
	}
	return &link{addr: a, conn: conn}, nil
}

func (l *link) close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	release(l.addr)
	return err
}

func (l *link) fail(op string, reg uint16, err error) error {
	return &BusError{Addr: l.addr, Op: op, Register: reg, Err: err}
}

// translate encodes a register number for the select offset.
func translate(reg uint16) uint16 {
	return bits.ReverseBytes16(0x8000 | reg)
}

func (l *link) selectRegister(reg uint16) error {
	if l.conn == nil {
		return l.fail("select", reg, ErrClosed)
	}
	if err := l.conn.WriteWordData(offsetSelect, translate(reg)); err != nil {
		return l.fail("select", reg, err)
	}
	return nil
}

func (l *link) readByte(reg uint16) (uint8, error) {
	if err := l.selectRegister(reg); err != nil {
		return 0, err
	}
	v, err := l.conn.ReadByteData(offsetReadByte)
	if err != nil {
		return 0, l.fail("read byte", reg, err)
	}
	return v, nil
}

func (l *link) writeByte(reg uint16, v uint8) error {
	if err := l.selectRegister(reg); err != nil {
		return err
	}
	if err := l.conn.WriteByteData(offsetWriteByte, v); err != nil {
		return l.fail("write byte", reg, err)
	}
	return nil
}

func (l *link) writeBlock(reg uint16, b []byte) error {
	if len(b) > smbus.MaxBlockSize {
		return l.fail("write block", reg, smbus.ErrBlockTooLarge)
	}
	if err := l.selectRegister(reg); err != nil {
		return err
	}
	if err := l.conn.WriteBlockData(offsetWriteBlock, b); err != nil {
		return l.fail("write block", reg, err)
	}
	return nil
}

// readIdentifier reads the chip's NUL terminated identifier string. A
// block without NUL is taken whole.
func (l *link) readIdentifier() (string, error) {
	if l.conn == nil {
		return "", l.fail("identify", identifierWindow, ErrClosed)
	}
	if err := l.conn.WriteWordData(offsetSelect, identifierWindow); err != nil {
		return "", l.fail("identify", identifierWindow, err)
	}
	b, err := l.conn.ReadBlockData(offsetIdentifier)
	if err != nil {
		return "", l.fail("identify", identifierWindow, err)
	}
	return parseIdentifier(b), nil
}

func parseIdentifier(b []byte) string {
	if len(b) > smbus.MaxBlockSize {
		b = b[:smbus.MaxBlockSize]
	}
	for i, c := range b {
		if c == 0 {
			b = b[:i]
			break
		}
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
