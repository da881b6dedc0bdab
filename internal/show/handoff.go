package show

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Overflow selects what Submit does when the hand-off queue is full.
type Overflow int

const (
	// DropOldest discards the oldest queued command to make room.
	DropOldest Overflow = iota
	// DropNewest discards the command being submitted.
	DropNewest
	// Block waits for room, or until the scheduler stops.
	Block
)

func (o Overflow) String() string {
	switch o {
	case DropNewest:
		return "drop-newest"
	case Block:
		return "block"
	default:
		return "drop-oldest"
	}
}

// ParseOverflow parses the String form of an Overflow.
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop-oldest":
		return DropOldest, nil
	case "drop-newest":
		return DropNewest, nil
	case "block":
		return Block, nil
	}
	return 0, fmt.Errorf("show: unknown overflow policy %q", s)
}

// Command is one pending colour update.
type Command struct {
	Controller string
	Frame      []byte
}

// handoff is the bounded FIFO between the script goroutine and the bus
// writer. Commands that survive the overflow policy keep submission order.
type handoff struct {
	ch      chan Command
	policy  Overflow
	done    <-chan struct{}
	dropped atomic.Uint64
}

func newHandoff(size int, policy Overflow, done <-chan struct{}) *handoff {
	return &handoff{ch: make(chan Command, size), policy: policy, done: done}
}

// push enqueues cmd. It reports whether cmd was queued and how many
// older commands were discarded for it.
func (h *handoff) push(cmd Command) (queued bool, evicted int, err error) {
	select {
	case h.ch <- cmd:
		return true, 0, nil
	default:
	}

	switch h.policy {
	case DropNewest:
		h.dropped.Add(1)
		return false, 0, nil

	case Block:
		select {
		case h.ch <- cmd:
			return true, 0, nil
		case <-h.done:
			return false, 0, ErrQueueClosed
		}

	default:
		for {
			select {
			case h.ch <- cmd:
				return true, evicted, nil
			default:
			}
			select {
			case <-h.ch:
				h.dropped.Add(1)
				evicted++
			default:
			}
		}
	}
}

// poll returns the next command without blocking.
func (h *handoff) poll() (Command, bool) {
	select {
	case cmd := <-h.ch:
		return cmd, true
	default:
		return Command{}, false
	}
}

func (h *handoff) len() int { return len(h.ch) }
