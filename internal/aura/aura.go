// Package aura drives Aura addressable-RGB controller chips over SMBus.
//
// Every register access is a two step transaction: the 16 bit register
// number is selected by a word write at offset 0x00, then the value is
// read or written at a fixed data offset. Colour frames are uploaded as one
// block write with the green and blue channels swapped, then latched by an
// upload-assert byte.
package aura

import (
	"fmt"
	"strings"
)

// BusAddress identifies a physical chip: the bus device path and its 7 bit
// slave address.
type BusAddress struct {
	Path string
	Addr uint16
}

func (a BusAddress) String() string {
	return fmt.Sprintf("%s@0x%02x", a.Path, a.Addr)
}

// Kind classifies a chip by its identifier.
type Kind int

const (
	Unknown Kind = iota
	Generic
	MotherboardIntegrated
)

func (k Kind) String() string {
	switch k {
	case Generic:
		return "generic"
	case MotherboardIntegrated:
		return "motherboard"
	default:
		return "unknown"
	}
}

// MotherboardSignature prefixes the identifier of motherboard-integrated
// controllers.
const MotherboardSignature = "AUMA0-E6K5"

// Classify maps a chip identifier to its Kind.
func Classify(identifier string) Kind {
	switch {
	case strings.HasPrefix(identifier, MotherboardSignature):
		return MotherboardIntegrated
	case identifier != "":
		return Generic
	default:
		return Unknown
	}
}

// Wire offsets and registers.
const (
	offsetSelect     uint8 = 0x00
	offsetWriteByte  uint8 = 0x01
	offsetWriteBlock uint8 = 0x03
	offsetReadByte   uint8 = 0x81
	offsetIdentifier uint8 = 0x90

	// identifierWindow is written untranslated to the select offset before
	// the identifier block read.
	identifierWindow uint16 = 0x0010

	regRegisterCount uint16 = 0x00C1
	regLedCountBase  uint16 = 0x00C8
	regAssertUpload  uint16 = 0x00A0

	assertUpload uint8 = 0x01
)

// staticModeInit puts the chip into static colour mode.
var staticModeInit = [...]struct {
	reg uint16
	val uint8
}{
	{0x0020, 0x01},
	{0x0021, 0x0F},
	{0x0025, 0xFF},
}

// profile holds the per-kind protocol quirks.
type profile struct {
	colourBase uint16
}

// profileFor returns the quirks for k. Unknown has none.
func profileFor(k Kind) (profile, bool) {
	switch k {
	case Generic:
		return profile{colourBase: 0x0000}, true
	case MotherboardIntegrated:
		return profile{colourBase: 0x0100}, true
	default:
		return profile{}, false
	}
}

// SwizzleGB returns a copy of frame with the second and third byte of every
// RGB triplet swapped, which is the order the chip expects on the wire.
// Applying it twice yields the input. A trailing partial triplet is copied
// unchanged.
func SwizzleGB(frame []byte) []byte {
	out := make([]byte, len(frame))
	copy(out, frame)
	for i := 0; i+2 < len(out); i += 3 {
		out[i+1], out[i+2] = out[i+2], out[i+1]
	}
	return out
}

// Topology is the per-zone LED count reported by the chip, low nibble only.
type Topology []uint8

// Total sums the zone counts.
func (t Topology) Total() int {
	n := 0
	for _, c := range t {
		n += int(c & 0x0F)
	}
	return n
}
