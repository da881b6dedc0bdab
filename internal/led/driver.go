// Package led drives LED sinks that are not SMBus RGB controllers: NRZ
// (WS281x) strips hung off an SPI port, and a terminal preview.
package led

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when a frame does not hold exactly three
// bytes per LED.
var ErrLengthMismatch = errors.New("led: frame length mismatch")

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}

// Strip exposes a Driver with a fixed LED count as a named controller for
// the show scheduler.
type Strip struct {
	name string
	leds int
	drv  Driver
}

func NewStrip(name string, leds int, drv Driver) *Strip {
	return &Strip{name: name, leds: leds, drv: drv}
}

func (s *Strip) Name() string       { return s.name }
func (s *Strip) TotalLedCount() int { return s.leds }

func (s *Strip) SetColours(frame []byte) error {
	if len(frame) != 3*s.leds {
		return fmt.Errorf("%w: %s has %d LEDs, frame is %d bytes", ErrLengthMismatch, s.name, s.leds, len(frame))
	}
	if s.leds == 0 {
		return nil
	}
	return s.drv.Write(frame)
}

func (s *Strip) Close() error { return s.drv.Close() }
