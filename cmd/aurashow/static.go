package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-aurashow/internal/app"
	"github.com/coreman2200/funtimes-aurashow/internal/show"
)

func newStaticCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "static <rrggbb>",
		Short: "Set every controller to one colour",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rgb, err := parseColour(args[0])
			if err != nil {
				return err
			}
			core, err := app.Bootstrap(cmd.Context(), o.cfg, o.deps())
			if err != nil {
				return err
			}
			defer core.Close()

			sched, err := show.New(core.Controllers,
				show.WithQueueSize(len(core.Controllers)+1),
				show.WithLogger(o.log))
			if err != nil {
				return err
			}
			for _, c := range core.Controllers {
				frame := bytes.Repeat(rgb, c.TotalLedCount())
				if err := sched.Submit(c.Name(), frame); err != nil {
					return err
				}
			}
			if err := sched.Drain(); err != nil {
				return err
			}
			o.log.Info().Str("colour", "#"+hex.EncodeToString(rgb)).Int("controllers", len(core.Controllers)).Msg("colour applied")
			return nil
		},
	}
}

// parseColour accepts "rrggbb", optionally prefixed with '#' or "0x".
func parseColour(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 3 {
		return nil, fmt.Errorf("colour %q is not rrggbb", s)
	}
	return b, nil
}
