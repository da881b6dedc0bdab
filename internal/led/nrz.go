package led

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
)

// DefaultNRZFreq suits WS2812 strips.
const DefaultNRZFreq = 2500 * physic.KiloHertz

// NRZ drives a WS281x strip through periph's nrzled SPI encoder.
type NRZ struct {
	dev    *nrzled.Dev
	closer io.Closer
}

// OpenNRZ opens the named SPI port from the periph registry. An empty port
// selects the first one available. host.Init must have run.
func OpenNRZ(port string, pixels int, freq physic.Frequency) (*NRZ, error) {
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("led: open spi %q: %w", port, err)
	}
	n, err := NewNRZ(p, pixels, freq)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	n.closer = p
	return n, nil
}

// NewNRZ encodes onto an already open port. The port is not closed by Close.
func NewNRZ(p spi.Port, pixels int, freq physic.Frequency) (*NRZ, error) {
	if freq == 0 {
		freq = DefaultNRZFreq
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: pixels, Channels: 3, Freq: freq})
	if err != nil {
		return nil, fmt.Errorf("led: nrzled: %w", err)
	}
	return &NRZ{dev: d}, nil
}

func (n *NRZ) String() string { return n.dev.String() }

func (n *NRZ) Write(rgb []byte) error {
	_, err := n.dev.Write(rgb)
	return err
}

// Close blanks the strip and releases the port.
func (n *NRZ) Close() error {
	err := n.dev.Halt()
	if n.closer != nil {
		if cerr := n.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
