package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the declared formatters in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, s.close()) }()

			names, err := s.app.Formatters(cmd.Context(), s.window)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSELECTOR\tSTATE\tON SAVE")
			for _, name := range names {
				res, derr := s.app.Describe(cmd.Context(), s.window, name)
				if derr != nil {
					fmt.Fprintf(tw, "%s\t\tinvalid: %v\t\n", name, derr)
					continue
				}
				state := "enabled"
				if !res.Enabled {
					state = "disabled"
				}
				onSave := "no"
				if res.Values.FormatOnSave {
					onSave = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, res.Values.Selector, state, onSave)
			}
			return tw.Flush()
		},
	}
}
