package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dshills/keyfmt/internal/config"
)

func newCheckCmd(c *cli) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the settings files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := c.openStore(config.WithStrictSchema(strict))
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, store.Close()) }()

			if c.project != "" {
				if _, err := store.OpenProject(c.project); err != nil {
					return err
				}
			}

			problems := multierr.Errors(store.Problems())
			for _, p := range problems {
				fmt.Fprintln(c.out, p)
			}
			if len(problems) > 0 {
				return errProblems
			}
			fmt.Fprintln(c.out, "ok")
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "also report settings the schema does not declare")
	return cmd
}
