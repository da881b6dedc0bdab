// Package app wires discovery, controller drivers and LED strips into the
// set of controllers the show scheduler runs.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-aurashow/internal/aura"
	"github.com/coreman2200/funtimes-aurashow/internal/config"
	"github.com/coreman2200/funtimes-aurashow/internal/discovery"
	"github.com/coreman2200/funtimes-aurashow/internal/led"
	"github.com/coreman2200/funtimes-aurashow/internal/show"
	"github.com/coreman2200/funtimes-aurashow/internal/smbus"
)

// Deps are the collaborators Bootstrap needs from the host.
type Deps struct {
	Opener  smbus.Opener
	Locator discovery.Locator
	// OpenStrip opens the driver of an NRZ strip. Nil uses led.OpenNRZ.
	OpenStrip func(s config.Strip) (led.Driver, error)
	// Preview mirrors every controller to the terminal.
	Preview bool
	Log     zerolog.Logger
}

// Core holds everything Bootstrap opened.
type Core struct {
	Aura   []*aura.Controller
	Strips []*led.Strip
	// Controllers is what the scheduler registers, in configuration order.
	Controllers []show.Controller
}

// Bootstrap connects the configured controllers and strips. A mandatory
// controller that cannot be reached fails the whole bootstrap; an optional
// one is logged and left out.
func Bootstrap(ctx context.Context, cfg *config.Config, d Deps) (*Core, error) {
	core := &Core{}
	ok := false
	defer func() {
		if !ok {
			core.Close()
		}
	}()

	paths, err := resolveAdapters(cfg, d)
	if err != nil {
		return nil, err
	}

	for _, cc := range cfg.Controllers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := d.Log.With().Str("controller", cc.Name).Logger()

		path, found := paths[cc.Adapter]
		if !found {
			// resolveAdapters only leaves optional controllers unresolved.
			log.Warn().Str("adapter", cc.Adapter).Msg("adapter not present, controller skipped")
			continue
		}
		c, err := aura.Connect(cc.Name, d.Opener, aura.BusAddress{Path: path, Addr: cc.Address}, log)
		if err != nil {
			if cc.Optional {
				log.Warn().Err(err).Msg("optional controller unavailable")
				continue
			}
			return nil, fmt.Errorf("app: controller %s: %w", cc.Name, err)
		}
		core.Aura = append(core.Aura, c)
		core.Controllers = append(core.Controllers, c)
	}

	open := d.OpenStrip
	if open == nil {
		open = openNRZ
	}
	for _, sc := range cfg.Strips {
		drv, err := open(sc)
		if err != nil {
			return nil, fmt.Errorf("app: strip %s: %w", sc.Name, err)
		}
		s := led.NewStrip(sc.Name, sc.LEDs, drv)
		core.Strips = append(core.Strips, s)
		core.Controllers = append(core.Controllers, s)
		d.Log.Info().Str("controller", sc.Name).Str("port", sc.Port).Int("leds", sc.LEDs).Msg("strip ready")
	}

	if d.Preview {
		for i, c := range core.Controllers {
			core.Controllers[i] = led.NewTerminalPreview(c)
		}
	}

	ok = true
	return core, nil
}

// resolveAdapters maps each adapter role used by a controller to its device
// path. Roles only optional controllers depend on may stay unresolved.
func resolveAdapters(cfg *config.Config, d Deps) (map[string]string, error) {
	needed := map[string]bool{} // role -> mandatory
	for _, cc := range cfg.Controllers {
		needed[cc.Adapter] = needed[cc.Adapter] || !cc.Optional
	}
	paths := map[string]string{}
	if len(needed) == 0 {
		return paths, nil
	}

	adapters, err := d.Locator.Scan()
	if err != nil {
		for _, mandatory := range needed {
			if mandatory {
				return nil, fmt.Errorf("app: %w", err)
			}
		}
		d.Log.Warn().Err(err).Msg("SMBus discovery failed")
		return paths, nil
	}

	for role, mandatory := range needed {
		a, err := discovery.Find(adapters, match(cfg.Adapters[role]))
		switch {
		case err == nil:
			paths[role] = a.Path
			d.Log.Debug().Str("adapter", role).Str("bus", a.Path).Msg("adapter resolved")
		case mandatory:
			return nil, fmt.Errorf("app: adapter %s: %w", role, err)
		}
	}
	return paths, nil
}

func match(a config.Adapter) discovery.Match {
	return discovery.Match{Port: a.Port, BaseAddress: a.BaseAddress}
}

func openNRZ(s config.Strip) (led.Driver, error) {
	return led.OpenNRZ(s.Port, s.LEDs, physic.Frequency(s.FreqKHz)*physic.KiloHertz)
}

// Close releases every controller and strip. Safe to call more than once.
func (c *Core) Close() error {
	var errs []error
	for _, a := range c.Aura {
		errs = append(errs, a.Close())
	}
	for _, s := range c.Strips {
		errs = append(errs, s.Close())
	}
	c.Aura, c.Strips, c.Controllers = nil, nil, nil
	return errors.Join(errs...)
}
