package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-aurashow/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, uint32(0xB00), c.Adapters["system"].BaseAddress)
	assert.Equal(t, 0, *c.Adapters["system"].Port)
	assert.Nil(t, c.Adapters["aux"].Port)

	var addrs []uint16
	for _, ctl := range c.Controllers {
		addrs = append(addrs, ctl.Address)
	}
	assert.Equal(t, []uint16{0x70, 0x71, 0x73, 0x74, 0x4E}, addrs)
	assert.Equal(t, 30*time.Millisecond, c.Scheduler.Period)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aurashow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bus:
  driver: periph
controllers:
  - name: RAM1
    adapter: system
    address: 0x70
  - name: MB
    adapter: aux
    address: 0x4e
    optional: true
scheduler:
  period: 50ms
  overflow: block
`), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, config.DriverPeriph, c.Bus.Driver)
	assert.Equal(t, "/", c.Bus.SysfsRoot)
	require.Len(t, c.Controllers, 2)
	assert.True(t, c.Controllers[1].Optional)
	assert.Equal(t, uint16(0x4E), c.Controllers[1].Address)
	assert.Equal(t, 50*time.Millisecond, c.Scheduler.Period)
	assert.Equal(t, 64, c.Scheduler.QueueSize)
	assert.Equal(t, "block", c.Scheduler.Overflow)
}

func TestLoadOrDefault(t *testing.T) {
	c, found, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, config.Default(), c)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus: [\n"), 0o644))
	_, _, err = config.LoadOrDefault(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aurashow.yaml")
	c := config.Default()
	c.Strips = []config.Strip{{Name: "desk", LEDs: 30}}
	require.NoError(t, config.Save(path, c))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{"driver", func(c *config.Config) { c.Bus.Driver = "usb" }, "bus.driver"},
		{"duplicate", func(c *config.Config) { c.Controllers[1].Name = "RAM1" }, `duplicate name "RAM1"`},
		{"strip clash", func(c *config.Config) { c.Strips = []config.Strip{{Name: "MB", LEDs: 1}} }, `duplicate name "MB"`},
		{"empty name", func(c *config.Config) { c.Controllers[0].Name = "" }, "empty name"},
		{"adapter", func(c *config.Config) { c.Controllers[0].Adapter = "gpu" }, `undefined adapter "gpu"`},
		{"address", func(c *config.Config) { c.Controllers[0].Address = 0x80 }, "outside"},
		{"period", func(c *config.Config) { c.Scheduler.Period = 0 }, "scheduler.period"},
		{"queue", func(c *config.Config) { c.Scheduler.QueueSize = 0 }, "queue_size"},
		{"overflow", func(c *config.Config) { c.Scheduler.Overflow = "spill" }, "scheduler.overflow"},
		{"level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExampleConfig(t *testing.T) {
	c, err := config.Load(filepath.Join("..", "..", "examples", "aurashow.yaml"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Len(t, c.Controllers, 5)
	assert.True(t, c.Controllers[4].Optional)
	assert.Equal(t, 50*time.Millisecond, c.Bus.Timeout)
	assert.True(t, c.Script.Watch)
}
