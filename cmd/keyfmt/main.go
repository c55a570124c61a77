// Package main is the entry point for the keyfmt command.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"

	"github.com/dshills/keyfmt/internal/app"
	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/registry"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newCLI(os.Stdin, os.Stdout, os.Stderr)
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		return exitCode(c, err)
	}
	return 0
}

// exitCode prints the errors not yet shown to the user and returns the
// process exit status.
func exitCode(c *cli, err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	for _, e := range multierr.Errors(err) {
		if !reported(e) {
			fmt.Fprintf(c.err, "keyfmt: %v\n", e)
		}
	}
	return 1
}

// reported reports whether err was already shown, either by the command
// or by the application's surface.
func reported(err error) bool {
	if errors.Is(err, errNeedsFormatting) || errors.Is(err, errProblems) || errors.Is(err, registry.ErrNoMatch) ||
		errors.Is(err, registry.ErrDisabled) {
		return true
	}
	var ferr *app.FormatError
	return errors.As(err, &ferr) && ferr.Style != config.ErrorStyleNone
}
