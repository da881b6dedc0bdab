// Package smbustest provides a fake smbus.Conn for driver tests.
package smbustest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/funtimes-aurashow/internal/smbus"
)

// Op identifies a transaction kind.
type Op string

const (
	WriteWord  Op = "write-word"
	ReadByte   Op = "read-byte"
	WriteByte  Op = "write-byte"
	WriteBlock Op = "write-block"
	ReadBlock  Op = "read-block"
)

// Tx is one recorded transaction.
type Tx struct {
	Op    Op
	Cmd   uint8
	Word  uint16
	Byte  uint8
	Block []byte
}

func (t Tx) String() string {
	switch t.Op {
	case WriteWord:
		return fmt.Sprintf("%s[0x%02x]=0x%04x", t.Op, t.Cmd, t.Word)
	case WriteByte, ReadByte:
		return fmt.Sprintf("%s[0x%02x]=0x%02x", t.Op, t.Cmd, t.Byte)
	default:
		return fmt.Sprintf("%s[0x%02x]=% x", t.Op, t.Cmd, t.Block)
	}
}

// ErrInjected is returned by transactions selected with FailAt.
var ErrInjected = errors.New("smbustest: injected bus failure")

// Recorder is an in-memory chip. Byte reads answer from Registers, keyed by
// the last register selected through a translated word write at offset 0x00.
// Block reads return Block. Every transaction is appended to Log.
type Recorder struct {
	mu sync.Mutex

	// Registers holds byte-read answers by selected register.
	Registers map[uint16]uint8
	// Block is the answer to any block read.
	Block []byte
	// FailAt makes the n-th transaction (0-based) fail with ErrInjected.
	// Negative disables injection.
	FailAt int

	Log    []Tx
	Closed bool

	selected uint16
}

// NewRecorder returns a Recorder with no injected failure.
func NewRecorder() *Recorder {
	return &Recorder{Registers: map[uint16]uint8{}, FailAt: -1}
}

// Opener returns an smbus.Opener that always hands out r.
func (r *Recorder) Opener() smbus.Opener {
	return smbus.OpenerFunc(func(path string, addr uint16) (smbus.Conn, error) {
		return r, nil
	})
}

// Count returns the number of transactions attempted so far.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Log)
}

// Transactions returns a copy of the log.
func (r *Recorder) Transactions() []Tx {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Tx(nil), r.Log...)
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Log = nil
}

func (r *Recorder) record(tx Tx) error {
	if r.Closed {
		return smbus.ErrClosed
	}
	n := len(r.Log)
	r.Log = append(r.Log, tx)
	if r.FailAt >= 0 && n == r.FailAt {
		return ErrInjected
	}
	return nil
}

func (r *Recorder) WriteWordData(cmd uint8, v uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Tx{Op: WriteWord, Cmd: cmd, Word: v}); err != nil {
		return err
	}
	// undo the 0x8000|reg byte swap
	r.selected = (v>>8 | v<<8) &^ 0x8000
	return nil
}

func (r *Recorder) ReadByteData(cmd uint8) (uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.Registers[r.selected]
	if err := r.record(Tx{Op: ReadByte, Cmd: cmd, Byte: v}); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *Recorder) WriteByteData(cmd uint8, v uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Tx{Op: WriteByte, Cmd: cmd, Byte: v})
}

func (r *Recorder) WriteBlockData(cmd uint8, b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Tx{Op: WriteBlock, Cmd: cmd, Block: append([]byte(nil), b...)})
}

func (r *Recorder) ReadBlockData(cmd uint8) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := append([]byte(nil), r.Block...)
	if err := r.record(Tx{Op: ReadBlock, Cmd: cmd, Block: b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}
