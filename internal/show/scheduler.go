// Package show runs the effect loop: a script goroutine produces colour
// commands, and a single bus-writer loop applies them on a fixed cadence.
package show

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-aurashow/internal/metrics"
)

const (
	DefaultPeriod    = 30 * time.Millisecond
	DefaultQueueSize = 64
)

// Controller is a named LED sink. SetColours is only ever called from the
// bus-writer loop.
type Controller interface {
	Name() string
	TotalLedCount() int
	SetColours(frame []byte) error
}

// Host is the script runtime. Tick runs one step of effect logic and may
// call Submit any number of times.
type Host interface {
	Tick(ctx context.Context) error
}

// HostFunc adapts a function to Host.
type HostFunc func(ctx context.Context) error

func (f HostFunc) Tick(ctx context.Context) error { return f(ctx) }

type settings struct {
	period    time.Duration
	queueSize int
	overflow  Overflow
	log       zerolog.Logger
	metrics   *metrics.Recorder
}

type Option func(*settings)

// WithPeriod sets the tick period. Non-positive values keep the default.
func WithPeriod(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithQueueSize bounds the hand-off queue. Values below one keep the default.
func WithQueueSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

func WithOverflow(o Overflow) Option {
	return func(s *settings) { s.overflow = o }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.log = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *settings) { s.metrics = m }
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Ticks    uint64
	Applied  uint64
	Dropped  uint64
	Skipped  uint64
	Pending  int
	Overflow Overflow
}

// Scheduler owns a fixed registry of controllers. Submit may be called from
// any goroutine; everything that touches a controller happens on the
// goroutine running Run (or calling Drain).
type Scheduler struct {
	controllers map[string]Controller
	names       []string

	period   time.Duration
	overflow Overflow
	queue    *handoff
	log      zerolog.Logger
	metrics  *metrics.Recorder

	stopped  chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	ticks   atomic.Uint64
	applied atomic.Uint64
	skipped atomic.Uint64
}

// New registers controllers by name. The registry does not change after New
// returns.
func New(controllers []Controller, opts ...Option) (*Scheduler, error) {
	st := settings{
		period:    DefaultPeriod,
		queueSize: DefaultQueueSize,
		overflow:  DropOldest,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(&st)
	}

	reg := make(map[string]Controller, len(controllers))
	names := make([]string, 0, len(controllers))
	for _, c := range controllers {
		name := c.Name()
		if name == "" {
			return nil, ErrEmptyName
		}
		if _, dup := reg[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateController, name)
		}
		reg[name] = c
		names = append(names, name)
		st.metrics.Controller(name, c.TotalLedCount())
	}
	sort.Strings(names)

	s := &Scheduler{
		controllers: reg,
		names:       names,
		period:      st.period,
		overflow:    st.overflow,
		log:         st.log,
		metrics:     st.metrics,
		stopped:     make(chan struct{}),
	}
	s.queue = newHandoff(st.queueSize, st.overflow, s.stopped)
	return s, nil
}

// Names returns the registered controller names in sorted order.
func (s *Scheduler) Names() []string {
	return append([]string(nil), s.names...)
}

// LedCounts returns a copy of the name to LED count table.
func (s *Scheduler) LedCounts() map[string]int {
	out := make(map[string]int, len(s.controllers))
	for name, c := range s.controllers {
		out[name] = c.TotalLedCount()
	}
	return out
}

func (s *Scheduler) LedCount(name string) (int, bool) {
	c, ok := s.controllers[name]
	if !ok {
		return 0, false
	}
	return c.TotalLedCount(), true
}

// Submit queues a copy of frame for the named controller and returns without
// touching the bus. Whether a full queue drops or blocks depends on the
// overflow policy.
func (s *Scheduler) Submit(name string, frame []byte) error {
	if _, ok := s.controllers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownController, name)
	}
	queued, evicted, err := s.queue.push(Command{Controller: name, Frame: bytes.Clone(frame)})
	if err != nil {
		return err
	}
	for i := 0; i < evicted; i++ {
		s.metrics.Dropped()
	}
	if !queued {
		s.metrics.Dropped()
		s.log.Debug().Str("controller", name).Msg("hand-off queue full, command dropped")
		return nil
	}
	s.metrics.Submitted()
	return nil
}

// Drain applies every queued command in submission order and stops at the
// first failure. It must not run concurrently with Run.
func (s *Scheduler) Drain() error {
	s.metrics.QueueDepth(s.queue.len())
	for {
		cmd, ok := s.queue.poll()
		if !ok {
			return nil
		}
		if err := s.apply(cmd); err != nil {
			return err
		}
	}
}

func (s *Scheduler) apply(cmd Command) error {
	c, ok := s.controllers[cmd.Controller]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownController, cmd.Controller)
	}
	start := time.Now()
	err := c.SetColours(cmd.Frame)
	s.metrics.Applied(cmd.Controller, time.Since(start), err)
	if err != nil {
		s.log.Error().Err(err).Str("controller", cmd.Controller).Msg("apply colours")
		return fmt.Errorf("show: apply %s: %w", cmd.Controller, err)
	}
	s.applied.Add(1)
	return nil
}

// Run ticks until ctx is cancelled, which returns nil. A script step error or
// a failed apply stops the loop and is returned. Run may be called once.
func (s *Scheduler) Run(ctx context.Context, host Host) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	advance := make(chan struct{}, 1)
	scriptErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runScript(ctx, host, advance, scriptErr)
	}()
	defer func() {
		cancel()
		s.stopOnce.Do(func() { close(s.stopped) })
		wg.Wait()
	}()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.log.Info().
		Dur("period", s.period).
		Str("overflow", s.overflow.String()).
		Strs("controllers", s.names).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return nil

		case err := <-scriptErr:
			return err

		case <-ticker.C:
			s.ticks.Add(1)
			s.metrics.Tick()
			select {
			case advance <- struct{}{}:
			default:
				s.skipped.Add(1)
				s.metrics.StepSkipped()
			}
			if err := s.Drain(); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) runScript(ctx context.Context, host Host, advance <-chan struct{}, errc chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-advance:
			if err := host.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				errc <- fmt.Errorf("show: script step: %w", err)
				return
			}
		}
	}
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:    s.ticks.Load(),
		Applied:  s.applied.Load(),
		Dropped:  s.queue.dropped.Load(),
		Skipped:  s.skipped.Load(),
		Pending:  s.queue.len(),
		Overflow: s.overflow,
	}
}
