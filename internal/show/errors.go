package show

import "errors"

var (
	// ErrUnknownController is returned for a command naming a controller that
	// is not registered.
	ErrUnknownController = errors.New("show: unknown controller")

	ErrDuplicateController = errors.New("show: duplicate controller name")
	ErrEmptyName           = errors.New("show: empty controller name")

	// ErrQueueClosed is returned by a blocked Submit once the scheduler stops.
	ErrQueueClosed = errors.New("show: hand-off queue closed")

	ErrAlreadyRunning = errors.New("show: scheduler already running")
)
