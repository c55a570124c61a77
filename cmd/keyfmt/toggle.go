package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dshills/keyfmt/internal/app"
	"github.com/dshills/keyfmt/internal/registry"
)

type toggleFunc func(a *app.Application, ctx context.Context, c registry.Context, name string) error

func newToggleCmd(c *cli, use, short string, toggle toggleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [formatter]",
		Short: short,
		Long: short + `.

The setting is written to the project document when --project is given,
otherwise to the global settings file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToggle(cmd, c, args, toggle, (*app.Application).IsEnabled, "enabled")
		},
	}
}

func newFormatOnSaveCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format-on-save",
		Short: "Turn formatting on save on or off",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable [formatter]",
			Short: "Format on save, for one formatter or all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runToggle(cmd, c, args, (*app.Application).EnableFormatOnSave, (*app.Application).IsFormatOnSaveEnabled, "format on save")
			},
		},
		&cobra.Command{
			Use:   "disable [formatter]",
			Short: "Stop formatting on save, for one formatter or all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runToggle(cmd, c, args, (*app.Application).DisableFormatOnSave, (*app.Application).IsFormatOnSaveEnabled, "format on save")
			},
		},
	)
	return cmd
}

func runToggle(
	cmd *cobra.Command,
	c *cli,
	args []string,
	toggle toggleFunc,
	state func(a *app.Application, ctx context.Context, c registry.Context, name string) (bool, error),
	label string,
) (err error) {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	s, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.close()) }()

	if err := toggle(s.app, cmd.Context(), s.window, name); err != nil {
		return err
	}
	on, err := state(s.app, cmd.Context(), s.window, name)
	if err != nil {
		return err
	}

	target := name
	if target == "" {
		target = "all formatters"
	}
	word := "off"
	if on {
		word = "on"
	}
	fmt.Fprintf(c.out, "%s: %s %s\n", target, label, word)
	return nil
}
