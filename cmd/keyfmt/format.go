package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/registry"
)

type formatOptions struct {
	scope     string
	stdinName string
	write     bool
	check     bool
	tabSize   int
	spaces    bool
}

func newFormatCmd(c *cli) *cobra.Command {
	opts := &formatOptions{}
	cmd := &cobra.Command{
		Use:   "format [file...]",
		Short: "Format files, or standard input when no file is given",
		Example: `  keyfmt format main.go
  keyfmt format -w src/*.rs
  cat data.json | keyfmt format --scope source.json
  keyfmt format --check --project app.keyfmt-project lib.py`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd, c, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.scope, "scope", "s", "", "syntax scope of the input (default derived from the file extension)")
	flags.StringVar(&opts.stdinName, "stdin-filename", "", "path to assume for standard input")
	flags.BoolVarP(&opts.write, "write", "w", false, "write the result back to each file")
	flags.BoolVar(&opts.check, "check", false, "list files that would change and exit non-zero if any")
	flags.IntVar(&opts.tabSize, "tab-size", 0, "indentation width passed to the formatter")
	flags.BoolVar(&opts.spaces, "spaces", false, "indent with spaces rather than tabs")
	cmd.MarkFlagsMutuallyExclusive("write", "check")
	return cmd
}

func runFormat(cmd *cobra.Command, c *cli, opts *formatOptions, args []string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 0 && isTerminal(c.in) {
		return errors.New("refusing to read from a terminal; pass files or pipe input")
	}
	if len(args) == 0 && opts.write {
		return errors.New("--write needs files")
	}

	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.close()) }()

	if len(args) == 0 {
		return formatStdin(ctx, cmd.Flags(), c, s, opts)
	}

	var errs error
	for _, path := range args {
		errs = multierr.Append(errs, formatPath(ctx, cmd.Flags(), c, s, opts, path))
	}
	return errs
}

func formatStdin(ctx context.Context, flags *pflag.FlagSet, c *cli, s *session, opts *formatOptions) error {
	input, err := io.ReadAll(c.in)
	if err != nil {
		return fmt.Errorf("reading standard input: %w", err)
	}

	name := opts.stdinName
	if name != "" {
		if abs, err := filepath.Abs(name); err == nil {
			name = abs
		}
	}
	changed, out, err := formatText(ctx, flags, s, opts, name, string(input))
	if err != nil {
		return err
	}

	if opts.check {
		if changed {
			fmt.Fprintln(c.out, displayName(opts.stdinName))
			return errNeedsFormatting
		}
		return nil
	}
	_, err = io.WriteString(c.out, out)
	return err
}

func formatPath(ctx context.Context, flags *pflag.FlagSet, c *cli, s *session, opts *formatOptions, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s: is a directory", path)
	}
	input, err := os.ReadFile(abs)
	if err != nil {
		return err
	}

	changed, out, err := formatText(ctx, flags, s, opts, abs, string(input))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	switch {
	case opts.check:
		if changed {
			fmt.Fprintln(c.out, path)
			return errNeedsFormatting
		}
		return nil
	case opts.write:
		if !changed {
			return nil
		}
		return os.WriteFile(abs, []byte(out), info.Mode().Perm())
	default:
		_, err := io.WriteString(c.out, out)
		return err
	}
}

// formatText formats text as the content of a document at path.
func formatText(ctx context.Context, flags *pflag.FlagSet, s *session, opts *formatOptions, path, text string) (bool, string, error) {
	sc := opts.scope
	if sc == "" {
		sc = scopeFor(path)
	}
	if sc == "" {
		return false, text, errors.New("cannot tell the scope from the file name; use --scope")
	}

	doc, err := s.app.OpenDocument(ctx, s.window, path)
	if err != nil {
		return false, text, err
	}
	defer s.app.CloseDocument(ctx, doc)

	if err := applyOverrides(ctx, flags, s, opts, doc); err != nil {
		return false, text, err
	}

	res, err := s.app.FormatFile(ctx, doc, sc, text)
	if err != nil {
		return false, text, err
	}
	return res.Changed, res.Text, nil
}

func applyOverrides(ctx context.Context, flags *pflag.FlagSet, s *session, opts *formatOptions, doc *registry.Document) error {
	if flags.Changed("tab-size") {
		if err := s.app.Override(ctx, doc, config.KeyTabSize, opts.tabSize); err != nil {
			return err
		}
	}
	if flags.Changed("spaces") {
		if err := s.app.Override(ctx, doc, config.KeyTranslateTabs, opts.spaces); err != nil {
			return err
		}
	}
	return nil
}

func displayName(name string) string {
	if name == "" {
		return "<standard input>"
	}
	return name
}
