package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAdaptersCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List the i2c adapters of the host SMBus controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapters, err := o.locator().Scan()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tPORT\tBASE\tNAME")
			for _, a := range adapters {
				fmt.Fprintf(w, "%s\t%d\t0x%04x\t%s\n", a.Path, a.Port, a.BaseAddress, a.Name)
			}
			return w.Flush()
		},
	}
}
