// Package script hosts light-show scripts written in Lua.
//
// A script sees a table `controllers` (name -> LED count) and a function
// `set_colours(name, colours)`, and must define `tick()`, which is called
// once per scheduler step. The helpers `colour_wheel(h)` and
// `solid(count, r, g, b)` build colours. Changes a script makes to
// `controllers` are local to the script.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrMissingTick is returned when a script does not define a tick function.
	ErrMissingTick = errors.New("script: tick function not defined")

	ErrBadColours = errors.New("script: colours must be a string or an array of bytes")
)

// Submitter is the slice of the scheduler a script can reach.
type Submitter interface {
	LedCounts() map[string]int
	Submit(name string, frame []byte) error
}

// Lua runs one script file. Tick and reloads happen on the caller's
// goroutine; only RequestReload may be called from elsewhere.
type Lua struct {
	path   string
	sub    Submitter
	counts map[string]int
	log    zerolog.Logger

	state *lua.LState
	tick  *lua.LFunction

	// submitErr holds a Go error raised from set_colours during the current
	// step so the caller can match it with errors.Is.
	submitErr error
	reload    atomic.Bool
}

// Load reads and runs the script at path.
func Load(path string, sub Submitter, log zerolog.Logger) (*Lua, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", path, err)
	}
	h := &Lua{path: path, sub: sub, counts: sub.LedCounts(), log: log.With().Str("script", path).Logger()}
	if err := h.compile(path, string(src)); err != nil {
		return nil, err
	}
	return h, nil
}

// LoadString runs src under the chunk name name. The result cannot reload.
func LoadString(name, src string, sub Submitter, log zerolog.Logger) (*Lua, error) {
	h := &Lua{sub: sub, counts: sub.LedCounts(), log: log.With().Str("script", name).Logger()}
	if err := h.compile(name, src); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Lua) compile(name, src string) error {
	L := lua.NewState()
	L.SetGlobal("controllers", h.controllersTable(L))
	L.SetGlobal("set_colours", L.NewFunction(h.setColours))
	L.SetGlobal("print", L.NewFunction(h.print))
	L.SetGlobal("colour_wheel", L.NewFunction(luaWheel))
	L.SetGlobal("solid", L.NewFunction(luaSolid))

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		L.Close()
		return fmt.Errorf("script: load %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		L.Close()
		return fmt.Errorf("script: run %s: %w", name, err)
	}
	tick, ok := L.GetGlobal("tick").(*lua.LFunction)
	if !ok {
		L.Close()
		return fmt.Errorf("%w in %s", ErrMissingTick, name)
	}

	if h.state != nil {
		h.state.Close()
	}
	h.state, h.tick = L, tick
	return nil
}

func (h *Lua) controllersTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	for name, n := range h.counts {
		t.RawSetString(name, lua.LNumber(n))
	}
	return t
}

// Tick calls the script's tick function once. Cancelling ctx interrupts a
// running step.
func (h *Lua) Tick(ctx context.Context) error {
	if h.reload.Swap(false) {
		h.reloadNow()
	}

	h.submitErr = nil
	h.state.SetContext(ctx)
	err := h.state.CallByParam(lua.P{Fn: h.tick, NRet: 0, Protect: true})
	h.state.RemoveContext()

	if h.submitErr != nil {
		return fmt.Errorf("script: tick: %w", h.submitErr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("script: tick: %w", err)
	}
	return nil
}

// RequestReload asks for the script file to be re-read before the next step.
func (h *Lua) RequestReload() {
	if h.path != "" {
		h.reload.Store(true)
	}
}

// A failed reload keeps the running script.
func (h *Lua) reloadNow() {
	src, err := os.ReadFile(h.path)
	if err == nil {
		err = h.compile(h.path, string(src))
	}
	if err != nil {
		h.log.Error().Err(err).Msg("reload failed, keeping previous script")
		return
	}
	h.log.Info().Msg("script reloaded")
}

func (h *Lua) Close() {
	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
}

// set_colours(name, colours)
func (h *Lua) setColours(L *lua.LState) int {
	name := L.CheckString(1)
	frame, err := toFrame(L.CheckAny(2))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	if err := h.sub.Submit(name, frame); err != nil {
		h.submitErr = err
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func toFrame(v lua.LValue) ([]byte, error) {
	switch v := v.(type) {
	case lua.LString:
		return []byte(string(v)), nil
	case *lua.LTable:
		n := v.Len()
		frame := make([]byte, n)
		for i := 1; i <= n; i++ {
			num, ok := v.RawGetInt(i).(lua.LNumber)
			if !ok || num < 0 || num > 255 || num != lua.LNumber(int(num)) {
				return nil, fmt.Errorf("%w: element %d is %s", ErrBadColours, i, v.RawGetInt(i).String())
			}
			frame[i-1] = byte(num)
		}
		return frame, nil
	}
	return nil, ErrBadColours
}

func (h *Lua) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	h.log.Info().Msg(strings.Join(parts, "\t"))
	return 0
}
