package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/dshills/keyfmt/internal/app"
	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/logging"
	"github.com/dshills/keyfmt/internal/registry"
)

// shutdownTimeout bounds how long formatter processes may outlive a
// command.
const shutdownTimeout = 5 * time.Second

var (
	errNeedsFormatting = errors.New("some files are not formatted")
	errProblems        = errors.New("settings have problems")
)

// cli holds the global flags and the streams commands use.
type cli struct {
	configDir string
	project   string
	logLevel  string
	verbose   bool
	noColor   bool

	in  io.Reader
	out io.Writer
	err io.Writer

	logger *zap.Logger
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{
		in:     in,
		out:    out,
		err:    errOut,
		logger: zap.NewNop(),
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "keyfmt",
		Short: "Format text with the formatter its syntax scope selects",
		Long: `keyfmt picks an external formatter for a piece of text by scoring the
formatters' scope selectors against the text's syntax scope, then runs it
with settings merged from the global settings file, an optional project
document and per-document overrides.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.ParseLevel(c.logLevel)
			if c.verbose {
				level = zapcore.DebugLevel
			}
			logger, err := logging.New(logging.Config{
				Level:       level,
				Development: c.verbose,
				Output:      c.err,
			})
			if err != nil {
				return err
			}
			c.logger = logger

			if c.noColor || !isTerminal(c.out) {
				color.NoColor = true
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.err)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", "", "directory of the global settings file (default $XDG_CONFIG_HOME/keyfmt)")
	flags.StringVarP(&c.project, "project", "p", "", "project document with per-project settings")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "verbose logging")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newFormatCmd(c),
		newResolveCmd(c),
		newListCmd(c),
		newToggleCmd(c, "enable", "Enable a formatter, or all formatters when no name is given", (*app.Application).Enable),
		newToggleCmd(c, "disable", "Disable a formatter, or all formatters when no name is given", (*app.Application).Disable),
		newFormatOnSaveCmd(c),
		newCheckCmd(c),
		newInitCmd(c),
		newVersionCmd(c),
	)
	return root
}

// session is an application with the window commands run in.
type session struct {
	store  *config.Store
	app    *app.Application
	window *registry.Window
}

func (c *cli) openStore(opts ...config.Option) (*config.Store, error) {
	return config.Open(append([]config.Option{
		config.WithConfigDir(c.configDir),
		config.WithWatcher(false),
		config.WithLogger(c.logger.Named("config")),
	}, opts...)...)
}

// open starts an application with one window on the --project document.
func (c *cli) open(ctx context.Context) (*session, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}

	a, err := app.New(app.Options{
		Store:   store,
		Surface: app.NewConsole(c.err),
		Console: c.err,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, multierr.Append(err, store.Close())
	}
	if err := a.Start(); err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	s := &session{store: store, app: a}
	s.window, err = a.OpenWindow(ctx, c.project)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("opening project: %w", err), s.close())
	}
	return s, nil
}

func (s *session) close() error {
	return multierr.Append(s.app.Shutdown(shutdownTimeout), s.store.Close())
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
