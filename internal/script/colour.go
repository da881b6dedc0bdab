package script

import (
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// wheel maps h in [0,1) around the RGB hue circle at full saturation.
func wheel(h float64) (r, g, b uint8) {
	h = h - math.Floor(h)
	h *= 6
	switch {
	case h < 1:
		return 255, uint8(255 * h), 0
	case h < 2:
		return uint8(255 * (2 - h)), 255, 0
	case h < 3:
		return 0, 255, uint8(255 * (h - 2))
	case h < 4:
		return 0, uint8(255 * (4 - h)), 255
	case h < 5:
		return uint8(255 * (h - 4)), 0, 255
	default:
		return 255, 0, uint8(255 * (6 - h))
	}
}

// colour_wheel(h) -> r, g, b
func luaWheel(L *lua.LState) int {
	r, g, b := wheel(float64(L.CheckNumber(1)))
	L.Push(lua.LNumber(r))
	L.Push(lua.LNumber(g))
	L.Push(lua.LNumber(b))
	return 3
}

// solid(count, r, g, b) -> string of count RGB triples
func luaSolid(L *lua.LState) int {
	n := L.CheckInt(1)
	px := []byte{checkByte(L, 2), checkByte(L, 3), checkByte(L, 4)}
	if n < 0 {
		L.ArgError(1, "negative count")
	}
	L.Push(lua.LString(strings.Repeat(string(px), n)))
	return 1
}

func checkByte(L *lua.LState, n int) byte {
	v := L.CheckInt(n)
	if v < 0 || v > 255 {
		L.ArgError(n, "value out of range 0..255")
	}
	return byte(v)
}
