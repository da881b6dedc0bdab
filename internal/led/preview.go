package led

import (
	"image"
	"image/color"
	"sync"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"
)

// Sink is the controller shape Preview decorates.
type Sink interface {
	Name() string
	TotalLedCount() int
	SetColours(frame []byte) error
}

// Preview mirrors every frame a Sink accepts onto a display, at most once
// per throttle interval.
type Preview struct {
	Sink
	drawer   display.Drawer
	throttle time.Duration

	mu   sync.Mutex
	last time.Time
}

// DefaultThrottle caps terminal redraws at about 20 per second.
const DefaultThrottle = 50 * time.Millisecond

func NewPreview(s Sink, d display.Drawer, throttle time.Duration) *Preview {
	return &Preview{Sink: s, drawer: d, throttle: throttle}
}

// NewTerminalPreview draws s as a row of coloured cells on stdout.
func NewTerminalPreview(s Sink) *Preview {
	return NewPreview(s, screen.New(s.TotalLedCount()), DefaultThrottle)
}

func (p *Preview) SetColours(frame []byte) error {
	if err := p.Sink.SetColours(frame); err != nil {
		return err
	}
	if len(frame) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if !p.last.IsZero() && now.Sub(p.last) < p.throttle {
		return nil
	}
	p.last = now
	return p.drawer.Draw(p.drawer.Bounds(), rowImage(frame), image.Point{})
}

func rowImage(frame []byte) *image.NRGBA {
	n := len(frame) / 3
	img := image.NewNRGBA(image.Rect(0, 0, n, 1))
	for i := 0; i < n; i++ {
		img.SetNRGBA(i, 0, color.NRGBA{R: frame[3*i], G: frame[3*i+1], B: frame[3*i+2], A: 255})
	}
	return img
}
