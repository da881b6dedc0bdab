package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-aurashow/internal/app"
)

func newRunCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [script.lua]",
		Short: "Run a Lua light show until interrupted",
		Long: `Connects the configured controllers and calls the script's tick() once per
scheduler period. The script sees a controllers table (name -> LED count) and
set_colours(name, colours). Without an argument the script.path setting is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.cfg.Script.Path
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no script given and script.path is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			core, err := app.Bootstrap(ctx, o.cfg, o.deps())
			if err != nil {
				return err
			}
			defer core.Close()

			c, err := app.NewConductor(core.Controllers, o.cfg, path, o.log)
			if err != nil {
				return err
			}
			err = c.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
