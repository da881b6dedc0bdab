package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-aurashow/internal/config"
	"github.com/coreman2200/funtimes-aurashow/internal/metrics"
	"github.com/coreman2200/funtimes-aurashow/internal/script"
	"github.com/coreman2200/funtimes-aurashow/internal/show"
)

// Conductor runs one script against the scheduler, with optional hot reload
// and a read-only metrics endpoint.
type Conductor struct {
	Sched   *show.Scheduler
	Script  *script.Lua
	Metrics *metrics.Recorder

	scriptPath string
	watch      bool
	debounce   time.Duration
	listen     string
	log        zerolog.Logger
}

func NewConductor(controllers []show.Controller, cfg *config.Config, scriptPath string, log zerolog.Logger) (*Conductor, error) {
	overflow, err := show.ParseOverflow(cfg.Scheduler.Overflow)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	sched, err := show.New(controllers,
		show.WithPeriod(cfg.Scheduler.Period),
		show.WithQueueSize(cfg.Scheduler.QueueSize),
		show.WithOverflow(overflow),
		show.WithLogger(log),
		show.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	host, err := script.Load(scriptPath, sched, log)
	if err != nil {
		return nil, err
	}
	return &Conductor{
		Sched:      sched,
		Script:     host,
		Metrics:    m,
		scriptPath: scriptPath,
		watch:      cfg.Script.Watch,
		debounce:   cfg.Script.Debounce,
		listen:     cfg.Metrics.Listen,
		log:        log,
	}, nil
}

// Run blocks until ctx is cancelled (nil) or the show fails.
func (c *Conductor) Run(ctx context.Context) error {
	defer c.Script.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	defer wg.Wait()

	if c.listen != "" {
		ln, err := net.Listen("tcp", c.listen)
		if err != nil {
			return fmt.Errorf("app: metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", c.Metrics.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.log.Error().Err(err).Msg("metrics server")
			}
		}()
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdown, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			_ = srv.Shutdown(shutdown)
		}()
		c.log.Info().Str("addr", ln.Addr().String()).Msg("metrics endpoint listening")
	}

	if c.watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := script.Watch(ctx, c.scriptPath, c.debounce, c.log, c.Script.RequestReload); err != nil {
				c.log.Warn().Err(err).Msg("hot reload disabled")
			}
		}()
	}

	err := c.Sched.Run(ctx, c.Script)
	cancel()
	return err
}
