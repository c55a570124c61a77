package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dshills/keyfmt/internal/config"
)

func newInitCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the starter formatter definitions to the global settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, store.Close()) }()

			global := store.Global()
			if global.Exists() && !force {
				return fmt.Errorf("%s already exists; use --force to add the starter formatters to it", global.Path())
			}

			for _, f := range config.Starter() {
				prefix := "formatters." + f.Name + "."
				if err := global.Set(prefix+config.KeySelector, f.Selector); err != nil {
					return fmt.Errorf("writing %s: %w", f.Name, err)
				}
				if err := global.Set(prefix+config.KeyCommand, f.Command); err != nil {
					return fmt.Errorf("writing %s: %w", f.Name, err)
				}
			}

			fmt.Fprintf(c.out, "wrote %d formatters to %s\n", len(config.Starter()), global.Path())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite the starter definitions in an existing file")
	return cmd
}
