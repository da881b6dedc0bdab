package aura

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-aurashow/internal/smbus"
)

// State is the connection lifecycle of a controller.
type State int

const (
	Disconnected State = iota
	Identifying
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Identifying:
		return "identifying"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "disconnected"
	}
}

// Controller is a connected, initialised chip in static colour mode.
// Only Connect constructs one, and only in the Ready state.
type Controller struct {
	name       string
	addr       BusAddress
	identifier string
	kind       Kind
	profile    profile
	topology   Topology
	total      int

	mu    sync.Mutex
	link  *link
	state State
}

// Connect opens an exclusive link to the chip at addr, identifies it,
// discovers its LED topology and switches it to static colour mode. Any
// failure closes the link and no controller is returned.
func Connect(name string, o smbus.Opener, addr BusAddress, log zerolog.Logger) (*Controller, error) {
	l, err := openLink(o, addr)
	if err != nil {
		return nil, err
	}
	c := &Controller{name: name, addr: addr, link: l}
	if err := c.identify(log); err != nil {
		_ = l.close()
		return nil, err
	}
	if err := c.initialize(log); err != nil {
		_ = l.close()
		return nil, err
	}
	c.state = Ready

	log.Info().
		Str("controller", name).
		Str("addr", addr.String()).
		Str("identifier", c.identifier).
		Int("leds", c.total).
		Stringer("kind", c.kind).
		Msg("controller ready")
	return c, nil
}

func (c *Controller) identify(log zerolog.Logger) error {
	c.state = Identifying
	log.Debug().Str("controller", c.name).Stringer("state", c.state).Msg("connect")

	id, err := c.link.readIdentifier()
	if err != nil {
		return err
	}
	kind := Classify(id)
	p, ok := profileFor(kind)
	if !ok {
		return fmt.Errorf("%w: %q at %s", ErrUnknownChip, id, c.addr)
	}
	c.identifier, c.kind, c.profile = id, kind, p
	return nil
}

func (c *Controller) initialize(log zerolog.Logger) error {
	c.state = Initializing
	log.Debug().Str("controller", c.name).Stringer("state", c.state).Msg("connect")

	count, err := c.link.readByte(regRegisterCount)
	if err != nil {
		return err
	}
	topo := make(Topology, 0, count)
	for i := uint16(0); i < uint16(count); i++ {
		n, err := c.link.readByte(regLedCountBase + i)
		if err != nil {
			return err
		}
		topo = append(topo, n&0x0F)
	}
	for _, w := range staticModeInit {
		if err := c.link.writeByte(w.reg, w.val); err != nil {
			return err
		}
	}
	c.topology, c.total = topo, topo.Total()
	return nil
}

func (c *Controller) Name() string        { return c.name }
func (c *Controller) Address() BusAddress { return c.addr }
func (c *Controller) Identifier() string  { return c.identifier }
func (c *Controller) Kind() Kind          { return c.kind }
func (c *Controller) TotalLedCount() int  { return c.total }

// Topology returns a copy of the per-zone LED counts.
func (c *Controller) Topology() Topology {
	return append(Topology(nil), c.topology...)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetColours uploads one RGB triplet per LED and latches it. The frame
// length must be exactly 3*TotalLedCount, otherwise ErrLengthMismatch is
// returned before any bus activity. A bus failure part way leaves the LEDs
// in whatever state was already latched.
func (c *Controller) SetColours(frame []byte) error {
	if len(frame) != 3*c.total {
		return fmt.Errorf("%w: %s got %d bytes, want %d", ErrLengthMismatch, c.name, len(frame), 3*c.total)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Ready {
		return ErrClosed
	}
	if c.total == 0 {
		return nil
	}
	if err := c.link.writeBlock(c.profile.colourBase, SwizzleGB(frame)); err != nil {
		return err
	}
	return c.link.writeByte(regAssertUpload, assertUpload)
}

// Close releases the bus connection and the address claim.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disconnected {
		return nil
	}
	c.state = Disconnected
	return c.link.close()
}
