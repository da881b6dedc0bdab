package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-aurashow/internal/app"
	"github.com/coreman2200/funtimes-aurashow/internal/config"
	"github.com/coreman2200/funtimes-aurashow/internal/discovery"
	"github.com/coreman2200/funtimes-aurashow/internal/smbus"
)

type rootOptions struct {
	configPath  string
	logLevel    string
	busDriver   string
	period      time.Duration
	preview     bool
	watch       bool
	metricsAddr string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "aurashow",
		Short:         "Drive Aura SMBus RGB controllers and run Lua light shows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "aurashow.yaml", "path to the YAML configuration")
	f.StringVar(&o.logLevel, "log-level", "", "log level: debug | info | warn | error")
	f.StringVar(&o.busDriver, "bus-driver", "", "SMBus backend: devfs | periph")
	f.DurationVar(&o.period, "period", 0, "scheduler tick period")
	f.BoolVar(&o.preview, "preview", false, "mirror every frame to the terminal")
	f.BoolVar(&o.watch, "watch", false, "reload the script when it changes")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.AddCommand(
		newAdaptersCmd(o),
		newInfoCmd(o),
		newStaticCmd(o),
		newRunCmd(o),
	)
	return cmd
}

// setup loads the config, applies flag overrides and configures logging.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, found, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if f.Changed("bus-driver") {
		cfg.Bus.Driver = o.busDriver
	}
	if f.Changed("period") {
		cfg.Scheduler.Period = o.period
	}
	if f.Changed("watch") {
		cfg.Script.Watch = o.watch
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Listen = o.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	if cfg.Log.Format == "json" {
		o.log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	} else {
		o.log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level)
	}
	if !found {
		o.log.Warn().Str("path", o.configPath).Msg("config not found, using defaults")
	}

	if cfg.Bus.Driver == config.DriverPeriph || len(cfg.Strips) > 0 {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph host init: %w", err)
		}
	}
	return nil
}

func (o *rootOptions) opener() smbus.Opener {
	if o.cfg.Bus.Driver == config.DriverPeriph {
		return smbus.Periph{}
	}
	return smbus.Devfs{Timeout: o.cfg.Bus.Timeout}
}

func (o *rootOptions) locator() discovery.Locator {
	return discovery.Locator{FS: os.DirFS(o.cfg.Bus.SysfsRoot)}
}

func (o *rootOptions) deps() app.Deps {
	return app.Deps{
		Opener:  o.opener(),
		Locator: o.locator(),
		Preview: o.preview,
		Log:     o.log,
	}
}
