package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-aurashow/internal/app"
)

func newInfoCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Connect the configured controllers and describe them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := app.Bootstrap(cmd.Context(), o.cfg, o.deps())
			if err != nil {
				return err
			}
			defer core.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBUS\tIDENTIFIER\tKIND\tZONES\tLEDS")
			for _, c := range core.Aura {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%d\n",
					c.Name(), c.Address(), c.Identifier(), c.Kind(), []uint8(c.Topology()), c.TotalLedCount())
			}
			for _, s := range core.Strips {
				fmt.Fprintf(w, "%s\tspi\t-\tnrz\t-\t%d\n", s.Name(), s.TotalLedCount())
			}
			return w.Flush()
		},
	}
}
