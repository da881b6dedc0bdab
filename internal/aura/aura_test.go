package aura

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var TestZoneBytesSumToTotal = []struct {
	Zones  Topology
	Expect int
}{
	{Topology{}, 0},
	{Topology{0x04, 0x03}, 7},
	{Topology{0xF4, 0x13}, 7},
	{Topology{0x0F, 0x0F, 0x0F}, 45},
	{Topology{0xF0, 0xA0}, 0},
}

func TestTopologyTotal(t *testing.T) {
	for k, v := range TestZoneBytesSumToTotal {
		t.Run("Zones"+strconv.Itoa(k), func(t *testing.T) {
			assert.Equal(t, v.Expect, v.Zones.Total())
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, MotherboardIntegrated, Classify("AUMA0-E6K5-0104"))
	assert.Equal(t, MotherboardIntegrated, Classify(MotherboardSignature))
	assert.Equal(t, Generic, Classify("DIMM_LED-0102"))
	assert.Equal(t, Generic, Classify("AUMA0"))
	assert.Equal(t, Generic, Classify(" AUMA0-E6K5"))
	assert.Equal(t, Unknown, Classify(""))
}

func TestSwizzleGB(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5, 6}
	out := SwizzleGB(in)

	assert.Equal(t, []byte{1, 3, 2, 4, 6, 5}, out)
	assert.Equal(t, in, SwizzleGB(out))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, in)
	assert.Empty(t, SwizzleGB(nil))
}

func TestTranslate(t *testing.T) {
	for reg, want := range map[uint16]uint16{
		0x0000: 0x0080,
		0x0100: 0x0081,
		0x00A0: 0xA080,
		0x00C1: 0xC180,
		0x00C8: 0xC880,
		0x0020: 0x2080,
	} {
		assert.Equal(t, want, translate(reg), "reg 0x%04x", reg)
	}
}

func TestParseIdentifier(t *testing.T) {
	full := strings.Repeat("A", 40)

	for _, tt := range []struct {
		name string
		in   []byte
		want string
	}{
		{"terminated", []byte("AUMA0-E6K5-0104\x00\xff\xff"), "AUMA0-E6K5-0104"},
		{"unterminated", []byte("DIMM_LED-0102"), "DIMM_LED-0102"},
		{"empty", nil, ""},
		{"leading nul", []byte{0, 'A'}, ""},
		{"bounded", []byte(full), full[:32]},
		{"invalid utf8", []byte{'A', 0xFF, 'B', 0}, "A\uFFFDB"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseIdentifier(tt.in))
		})
	}
}
