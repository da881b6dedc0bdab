// Package discovery locates the host SMBus controller and its I2C adapters
// through sysfs.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// smbusClass is the PCI class code of an SMBus controller.
const smbusClass = 0x0c0500

var (
	// ErrNoSMBus is returned when no PCI device of the SMBus class exists.
	ErrNoSMBus = errors.New("discovery: no SMBus controller found")

	// ErrAdapterNotFound is returned when no adapter satisfies a Match.
	ErrAdapterNotFound = errors.New("discovery: no matching i2c adapter")
)

// Adapter is one i2c-N adapter exposed by the SMBus controller.
type Adapter struct {
	Path        string // /dev/i2c-N
	Name        string
	Port        int
	BaseAddress uint32
}

func (a Adapter) String() string {
	return fmt.Sprintf("%s (port %d at 0x%04x)", a.Path, a.Port, a.BaseAddress)
}

// Locator reads sysfs through FS, which is rooted at "/".
type Locator struct {
	FS fs.FS
}

// FindSMBus returns the sysfs directory of the first PCI device whose class
// is SMBus, relative to the FS root.
func (l Locator) FindSMBus() (string, error) {
	const devices = "sys/bus/pci/devices"
	entries, err := fs.ReadDir(l.FS, devices)
	if err != nil {
		return "", fmt.Errorf("discovery: read %s: %w", devices, err)
	}
	for _, e := range entries {
		dir := path.Join(devices, e.Name())
		b, err := fs.ReadFile(l.FS, path.Join(dir, "class"))
		if err != nil {
			continue
		}
		class, err := parseClass(string(b))
		if err != nil {
			continue
		}
		if class == smbusClass {
			return dir, nil
		}
	}
	return "", ErrNoSMBus
}

func parseClass(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}

// Adapters lists the i2c-N adapters below the SMBus device directory.
// Adapters whose name does not end in "port P at BASE" are skipped.
func (l Locator) Adapters(smbusDir string) ([]Adapter, error) {
	entries, err := fs.ReadDir(l.FS, smbusDir)
	if err != nil {
		return nil, fmt.Errorf("discovery: read %s: %w", smbusDir, err)
	}
	var out []Adapter
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "i2c-") {
			continue
		}
		b, err := fs.ReadFile(l.FS, path.Join(smbusDir, e.Name(), "name"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(b))
		port, base, ok := parseAdapterName(name)
		if !ok {
			continue
		}
		out = append(out, Adapter{
			Path:        "/dev/" + e.Name(),
			Name:        name,
			Port:        port,
			BaseAddress: base,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// parseAdapterName extracts the port and base address from names such as
// "SMBus PIIX4 adapter port 0 at 0b00".
func parseAdapterName(name string) (int, uint32, bool) {
	f := strings.Fields(name)
	if len(f) < 3 {
		return 0, 0, false
	}
	port, err := strconv.Atoi(f[len(f)-3])
	if err != nil {
		return 0, 0, false
	}
	base, err := strconv.ParseUint(f[len(f)-1], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	return port, uint32(base), true
}

// Match selects an adapter by base address and, when Port is set, by port.
type Match struct {
	Port        *int
	BaseAddress uint32
}

func (m Match) matches(a Adapter) bool {
	if m.Port != nil && *m.Port != a.Port {
		return false
	}
	return a.BaseAddress == m.BaseAddress
}

func (m Match) String() string {
	if m.Port != nil {
		return fmt.Sprintf("port %d at 0x%04x", *m.Port, m.BaseAddress)
	}
	return fmt.Sprintf("base 0x%04x", m.BaseAddress)
}

// Find returns the first adapter satisfying m.
func Find(adapters []Adapter, m Match) (Adapter, error) {
	for _, a := range adapters {
		if m.matches(a) {
			return a, nil
		}
	}
	return Adapter{}, fmt.Errorf("%w: %s", ErrAdapterNotFound, m)
}

// Scan finds the SMBus controller and lists its adapters.
func (l Locator) Scan() ([]Adapter, error) {
	dir, err := l.FindSMBus()
	if err != nil {
		return nil, err
	}
	return l.Adapters(dir)
}
