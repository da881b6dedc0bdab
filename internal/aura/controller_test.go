package aura_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-aurashow/internal/aura"
	"github.com/coreman2200/funtimes-aurashow/internal/smbus/smbustest"
)

// chip returns a recorder answering like a two-zone, seven LED DIMM.
func chip(identifier string) *smbustest.Recorder {
	r := smbustest.NewRecorder()
	r.Block = append([]byte(identifier), 0x00, 'x', 'y')
	r.Registers[0xC1] = 2
	r.Registers[0xC8] = 0x04
	r.Registers[0xC9] = 0x03
	return r
}

func connect(t *testing.T, r *smbustest.Recorder, addr uint16) *aura.Controller {
	t.Helper()
	c, err := aura.Connect("RAM1", r.Opener(), aura.BusAddress{Path: "/dev/i2c-0", Addr: addr}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sel(v uint16) smbustest.Tx {
	return smbustest.Tx{Op: smbustest.WriteWord, Cmd: 0x00, Word: v}
}

func TestConnectInitialisesStaticMode(t *testing.T) {
	r := chip("DIMM_LED-0102")
	c := connect(t, r, 0x70)

	assert.Equal(t, "DIMM_LED-0102", c.Identifier())
	assert.Equal(t, aura.Generic, c.Kind())
	assert.Equal(t, aura.Topology{4, 3}, c.Topology())
	assert.Equal(t, 7, c.TotalLedCount())
	assert.Equal(t, aura.Ready, c.State())

	want := []smbustest.Tx{
		sel(0x0010),
		{Op: smbustest.ReadBlock, Cmd: 0x90, Block: r.Block},
		sel(0xC180),
		{Op: smbustest.ReadByte, Cmd: 0x81, Byte: 2},
		sel(0xC880),
		{Op: smbustest.ReadByte, Cmd: 0x81, Byte: 0x04},
		sel(0xC980),
		{Op: smbustest.ReadByte, Cmd: 0x81, Byte: 0x03},
		sel(0x2080),
		{Op: smbustest.WriteByte, Cmd: 0x01, Byte: 0x01},
		sel(0x2180),
		{Op: smbustest.WriteByte, Cmd: 0x01, Byte: 0x0F},
		sel(0x2580),
		{Op: smbustest.WriteByte, Cmd: 0x01, Byte: 0xFF},
	}
	assert.Equal(t, want, r.Transactions())
}

func TestConnectMasksZoneHighNibble(t *testing.T) {
	r := chip("DIMM_LED-0102")
	r.Registers[0xC1] = 3
	r.Registers[0xC8] = 0xF4
	r.Registers[0xC9] = 0x13
	r.Registers[0xCA] = 0xA0
	c := connect(t, r, 0x71)

	assert.Equal(t, aura.Topology{4, 3, 0}, c.Topology())
	assert.Equal(t, 7, c.TotalLedCount())
}

func TestSetColoursWhiteFrame(t *testing.T) {
	r := chip("DIMM_LED-0102")
	c := connect(t, r, 0x72)
	r.Reset()

	frame := bytes.Repeat([]byte{0xFF}, 21)
	require.NoError(t, c.SetColours(frame))

	want := []smbustest.Tx{
		sel(0x0080),
		{Op: smbustest.WriteBlock, Cmd: 0x03, Block: frame},
		sel(0xA080),
		{Op: smbustest.WriteByte, Cmd: 0x01, Byte: 0x01},
	}
	assert.Equal(t, want, r.Transactions())
}

func TestSetColoursSwapsGreenAndBlue(t *testing.T) {
	r := chip("DIMM_LED-0102")
	c := connect(t, r, 0x73)
	r.Reset()

	frame := make([]byte, 21)
	for i := range frame {
		frame[i] = byte(i)
	}
	require.NoError(t, c.SetColours(frame))

	txs := r.Transactions()
	require.Len(t, txs, 4)
	block := txs[1].Block
	require.Len(t, block, 21)
	for i := 0; i < 21; i += 3 {
		assert.Equal(t, []byte{frame[i], frame[i+2], frame[i+1]}, block[i:i+3], "led %d", i/3)
	}
	// caller's frame is untouched
	assert.Equal(t, byte(1), frame[1])
}

func TestSetColoursRejectsLengthMismatch(t *testing.T) {
	r := chip("DIMM_LED-0102")
	c := connect(t, r, 0x74)
	r.Reset()

	for _, n := range []int{0, 3, 20, 22, 42} {
		err := c.SetColours(make([]byte, n))
		assert.ErrorIs(t, err, aura.ErrLengthMismatch, "len %d", n)
	}
	assert.Equal(t, 0, r.Count())
}

func TestMotherboardColourBase(t *testing.T) {
	r := chip("AUMA0-E6K5-0104")
	c := connect(t, r, 0x4E)
	require.Equal(t, aura.MotherboardIntegrated, c.Kind())
	r.Reset()

	require.NoError(t, c.SetColours(make([]byte, 21)))
	txs := r.Transactions()
	require.NotEmpty(t, txs)
	assert.Equal(t, sel(0x0081), txs[0])
}

func TestEveryAccessReselects(t *testing.T) {
	r := chip("DIMM_LED-0102")
	c := connect(t, r, 0x75)
	require.NoError(t, c.SetColours(make([]byte, 21)))
	require.NoError(t, c.SetColours(make([]byte, 21)))

	txs := r.Transactions()
	for i, tx := range txs {
		switch tx.Op {
		case smbustest.ReadByte, smbustest.WriteByte, smbustest.WriteBlock:
			require.Greater(t, i, 0)
			prev := txs[i-1]
			assert.Equal(t, smbustest.WriteWord, prev.Op, "tx %d %s not preceded by a select", i, tx)
			assert.Equal(t, uint8(0x00), prev.Cmd)
			assert.Equal(t, uint16(0x80), prev.Word&0xFF, "select word must carry the 0x8000 flag in its low byte")
		}
	}
}

func TestZeroLedController(t *testing.T) {
	r := chip("DIMM_LED-0102")
	r.Registers[0xC1] = 0
	c := connect(t, r, 0x76)
	require.Equal(t, 0, c.TotalLedCount())
	r.Reset()

	assert.NoError(t, c.SetColours(nil))
	assert.ErrorIs(t, c.SetColours([]byte{1, 2, 3}), aura.ErrLengthMismatch)
	assert.Equal(t, 0, r.Count())
}

func TestConnectFailureReleasesAddress(t *testing.T) {
	addr := aura.BusAddress{Path: "/dev/i2c-0", Addr: 0x77}
	for fail := 0; fail < 14; fail++ {
		r := chip("DIMM_LED-0102")
		r.FailAt = fail
		c, err := aura.Connect("RAM", r.Opener(), addr, zerolog.Nop())
		assert.Nil(t, c, "fail at %d", fail)
		assert.ErrorIs(t, err, aura.ErrBus, "fail at %d", fail)
		assert.ErrorIs(t, err, smbustest.ErrInjected, "fail at %d", fail)
		assert.True(t, r.Closed, "fail at %d", fail)
	}

	r := chip("DIMM_LED-0102")
	c, err := aura.Connect("RAM", r.Opener(), addr, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestConnectUnknownChip(t *testing.T) {
	r := chip("")
	c, err := aura.Connect("RAM", r.Opener(), aura.BusAddress{Path: "/dev/i2c-0", Addr: 0x78}, zerolog.Nop())
	assert.Nil(t, c)
	assert.ErrorIs(t, err, aura.ErrUnknownChip)
	assert.True(t, r.Closed)
}

func TestAddressIsExclusive(t *testing.T) {
	addr := aura.BusAddress{Path: "/dev/i2c-9", Addr: 0x70}
	first, err := aura.Connect("A", chip("DIMM_LED-0102").Opener(), addr, zerolog.Nop())
	require.NoError(t, err)

	_, err = aura.Connect("B", chip("DIMM_LED-0102").Opener(), addr, zerolog.Nop())
	assert.ErrorIs(t, err, aura.ErrAddressInUse)

	// same slave address on another bus is a different chip
	other, err := aura.Connect("C", chip("DIMM_LED-0102").Opener(), aura.BusAddress{Path: "/dev/i2c-8", Addr: 0x70}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, other.Close())

	require.NoError(t, first.Close())
	second, err := aura.Connect("B", chip("DIMM_LED-0102").Opener(), addr, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSetColoursBusError(t *testing.T) {
	r := chip("DIMM_LED-0102")
	c := connect(t, r, 0x79)
	r.Reset()
	r.FailAt = 1

	err := c.SetColours(make([]byte, 21))
	assert.ErrorIs(t, err, aura.ErrBus)
	var be *aura.BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "write block", be.Op)
	assert.Equal(t, 2, r.Count(), "upload must not be asserted after a failed block write")
}

func TestSetColoursAfterClose(t *testing.T) {
	r := chip("DIMM_LED-0102")
	c, err := aura.Connect("RAM", r.Opener(), aura.BusAddress{Path: "/dev/i2c-0", Addr: 0x7A}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.SetColours(make([]byte, 21)), aura.ErrClosed)
	assert.Equal(t, aura.Disconnected, c.State())
}
