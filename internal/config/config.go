// Package config loads the aurashow YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-aurashow/internal/show"
)

const (
	DriverDevfs  = "devfs"
	DriverPeriph = "periph"
)

type Bus struct {
	Driver    string        `yaml:"driver"`     // "devfs" | "periph"
	Timeout   time.Duration `yaml:"timeout"`    // per-transaction, devfs only; 0 keeps the kernel default
	SysfsRoot string        `yaml:"sysfs_root"` // usually "/"
}

// Adapter picks an i2c adapter of the SMBus controller by base address and,
// optionally, port.
type Adapter struct {
	Port        *int   `yaml:"port,omitempty"`
	BaseAddress uint32 `yaml:"base_address"`
}

// Controller is one Aura chip on an adapter.
type Controller struct {
	Name     string `yaml:"name"`
	Adapter  string `yaml:"adapter"` // key into Config.Adapters
	Address  uint16 `yaml:"address"`
	Optional bool   `yaml:"optional"` // failure to connect is logged, not fatal
}

// Strip is an NRZ (WS281x) strip on an SPI port.
type Strip struct {
	Name    string `yaml:"name"`
	Port    string `yaml:"port"` // periph spireg name, "" for the first port
	LEDs    int    `yaml:"leds"`
	FreqKHz int    `yaml:"freq_khz,omitempty"`
}

type Scheduler struct {
	Period    time.Duration `yaml:"period"`
	QueueSize int           `yaml:"queue_size"`
	Overflow  string        `yaml:"overflow"` // drop-oldest | drop-newest | block
}

type Script struct {
	Path     string        `yaml:"path,omitempty"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type Metrics struct {
	Listen string `yaml:"listen,omitempty"` // empty disables the endpoint
}

type Config struct {
	Bus         Bus                `yaml:"bus"`
	Adapters    map[string]Adapter `yaml:"adapters"`
	Controllers []Controller       `yaml:"controllers"`
	Strips      []Strip            `yaml:"strips,omitempty"`
	Scheduler   Scheduler          `yaml:"scheduler"`
	Script      Script             `yaml:"script"`
	Log         Log                `yaml:"log"`
	Metrics     Metrics            `yaml:"metrics"`
}

// Default describes a board with four Aura DIMMs on the system SMBus and the
// motherboard controller on the auxiliary one.
func Default() *Config {
	port0 := 0
	return &Config{
		Bus: Bus{Driver: DriverDevfs, SysfsRoot: "/"},
		Adapters: map[string]Adapter{
			"system": {Port: &port0, BaseAddress: 0xB00},
			"aux":    {BaseAddress: 0xB20},
		},
		Controllers: []Controller{
			{Name: "RAM1", Adapter: "system", Address: 0x70},
			{Name: "RAM2", Adapter: "system", Address: 0x71},
			{Name: "RAM3", Adapter: "system", Address: 0x73},
			{Name: "RAM4", Adapter: "system", Address: 0x74},
			{Name: "MB", Adapter: "aux", Address: 0x4E},
		},
		Scheduler: Scheduler{
			Period:    show.DefaultPeriod,
			QueueSize: show.DefaultQueueSize,
			Overflow:  show.DropOldest.String(),
		},
		Script: Script{Debounce: 250 * time.Millisecond},
		Log:    Log{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values; a listed controllers or strips section replaces the
// default list.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults and
// found=false.
func LoadOrDefault(path string) (c *Config, found bool, err error) {
	c, err = Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	switch c.Bus.Driver {
	case DriverDevfs, DriverPeriph:
	default:
		bad("bus.driver %q is not %q or %q", c.Bus.Driver, DriverDevfs, DriverPeriph)
	}
	if c.Bus.Timeout < 0 {
		bad("bus.timeout must not be negative")
	}

	names := map[string]bool{}
	claim := func(kind, name string) {
		switch {
		case name == "":
			bad("%s with empty name", kind)
		case names[name]:
			bad("duplicate name %q", name)
		}
		names[name] = true
	}
	for _, ctl := range c.Controllers {
		claim("controller", ctl.Name)
		if _, ok := c.Adapters[ctl.Adapter]; !ok {
			bad("controller %q uses undefined adapter %q", ctl.Name, ctl.Adapter)
		}
		if ctl.Address < 0x03 || ctl.Address > 0x77 {
			bad("controller %q address 0x%02x is outside 0x03..0x77", ctl.Name, ctl.Address)
		}
	}
	for _, s := range c.Strips {
		claim("strip", s.Name)
		if s.LEDs < 0 {
			bad("strip %q has negative LED count", s.Name)
		}
	}

	if c.Scheduler.Period <= 0 {
		bad("scheduler.period must be positive")
	}
	if c.Scheduler.QueueSize < 1 {
		bad("scheduler.queue_size must be at least 1")
	}
	if _, err := show.ParseOverflow(c.Scheduler.Overflow); err != nil {
		errs = append(errs, fmt.Errorf("config: scheduler.overflow: %w", err))
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		bad("log.level %q: %v", c.Log.Level, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		bad("log.format %q is not console or json", c.Log.Format)
	}
	return errors.Join(errs...)
}
