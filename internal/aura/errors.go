package aura

import (
	"errors"
	"fmt"
)

// Domain-specific errors. Use errors.Is() to check for these in calling code.
var (
	// ErrBus matches any BusError.
	ErrBus = errors.New("aura: bus transaction failed")

	// ErrLengthMismatch is returned by SetColours when the frame is not
	// three bytes per LED. No bus transaction is issued.
	ErrLengthMismatch = errors.New("aura: colour frame length mismatch")

	// ErrUnknownChip is returned by Connect when the identifier does not
	// classify to a supported kind.
	ErrUnknownChip = errors.New("aura: unrecognised chip identifier")

	// ErrAddressInUse is returned when a bus address is already owned by
	// another open controller.
	ErrAddressInUse = errors.New("aura: bus address already in use")

	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("aura: controller closed")
)

// BusError reports a failed transaction and the logical operation it
// aborted.
type BusError struct {
	Addr     BusAddress
	Op       string
	Register uint16
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("aura: %s %s reg 0x%04x: %v", e.Addr, e.Op, e.Register, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

func (e *BusError) Is(target error) bool { return target == ErrBus }
