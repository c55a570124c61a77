package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.uber.org/multierr"

	"github.com/dshills/keyfmt/internal/app"
	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/registry"
)

func newResolveCmd(c *cli) *cobra.Command {
	var scope string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve [file]",
		Short: "Show which formatter a file or scope resolves to and where its settings come from",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			sc := scope
			if sc == "" && len(args) == 1 {
				sc = scopeFor(args[0])
			}
			if sc == "" {
				return errors.New("pass a file with a known extension or --scope")
			}

			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, s.close()) }()

			ctx := registry.Context(s.window)
			if len(args) == 1 {
				doc, err := s.app.OpenDocument(cmd.Context(), s.window, args[0])
				if err != nil {
					return err
				}
				ctx = doc
			}

			res, err := s.app.Resolve(cmd.Context(), ctx, sc)
			if errors.Is(err, registry.ErrNoMatch) {
				return fmt.Errorf("no formatter for scope %q", sc)
			}

			if asJSON {
				out, jerr := resolutionJSON(sc, res, err)
				if jerr != nil {
					return jerr
				}
				_, werr := c.out.Write(out)
				return werr
			}
			printResolution(c.out, sc, res)
			return err
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "syntax scope to resolve")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

type settingRow struct {
	key     string
	value   any
	display string
}

func settingRows(v config.Values) []settingRow {
	return []settingRow{
		{config.KeySelector, v.Selector, v.Selector},
		{config.KeyCommand, v.Command, strings.Join(v.Command, " ")},
		{config.KeyEnabled, v.Enabled, fmt.Sprint(v.Enabled)},
		{config.KeyFormatOnSave, v.FormatOnSave, fmt.Sprint(v.FormatOnSave)},
		{config.KeyErrorStyle, v.ErrorStyle.String(), v.ErrorStyle.String()},
		{config.KeyTimeout, v.Timeout.Seconds(), v.Timeout.String()},
		{config.KeyPaths, v.Paths, strings.Join(v.Paths, ":")},
		{config.KeyTabSize, v.TabSize, fmt.Sprint(v.TabSize)},
		{config.KeyTranslateTabs, v.TranslateTabs, fmt.Sprint(v.TranslateTabs)},
	}
}

func printResolution(w io.Writer, sc string, res app.Resolution) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "scope\t%s\t\n", sc)
	fmt.Fprintf(tw, "formatter\t%s\t\n", res.Formatter)
	for _, row := range settingRows(res.Values) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.key, row.display, res.Origins[row.key])
	}
	tw.Flush()
}

// resolutionJSON renders res with each setting's value and origin. A
// settings error is included rather than returned.
func resolutionJSON(sc string, res app.Resolution, resErr error) ([]byte, error) {
	js := `{}`
	set := func(path string, value any) error {
		var err error
		js, err = sjson.Set(js, path, value)
		return err
	}

	err := multierr.Combine(
		set("scope", sc),
		set("formatter", res.Formatter),
		set("enabled", res.Enabled),
	)
	if resErr != nil {
		err = multierr.Append(err, set("error", resErr.Error()))
	}
	for _, row := range settingRows(res.Values) {
		key := strings.ReplaceAll(row.key, ".", `\.`)
		err = multierr.Append(err, set("settings."+key+".value", row.value))
		if origin, ok := res.Origins[row.key]; ok {
			err = multierr.Append(err, set("settings."+key+".origin", origin))
		}
	}
	if err != nil {
		return nil, err
	}
	return pretty.Pretty([]byte(js)), nil
}
