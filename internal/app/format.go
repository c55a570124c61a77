package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/config/layer"
	"github.com/dshills/keyfmt/internal/invoke"
	"github.com/dshills/keyfmt/internal/registry"
)

// Status messages for requests no formatter matches.
const (
	NoFormatterForFile      = "No formatter for file"
	NoFormatterForSelection = "No formatter for selection"
)

// FormatterDisabled is the status format for a match that is turned off.
const FormatterDisabled = "Formatter %s is disabled"

// Request is a piece of text to format.
type Request struct {
	// Context is the document or window the text belongs to.
	Context registry.Context

	// Scope is the syntax scope of the text.
	Scope string

	// Text is the text to format. Empty text is returned unchanged.
	Text string

	// File overrides the path used for ${file} and friends. It defaults
	// to the document's path.
	File string

	// Selection marks part of a document rather than all of it.
	Selection bool
}

// Region is one selection of a document.
type Region struct {
	Scope string
	Text  string
}

// Result is the outcome of a format request.
type Result struct {
	// Formatter names the formatter that ran, if any.
	Formatter string

	// Text is the formatted text, or the input if nothing ran.
	Text string

	// Changed reports whether Text differs from the input.
	Changed bool
}

// Resolution describes the formatter a scope resolves to.
type Resolution struct {
	Formatter string
	Enabled   bool
	Values    config.Values

	// Origins maps each setting key to the layer that supplied it.
	Origins map[string]string
}

// job is a resolved request, ready to run off the loop.
type job struct {
	name   string
	window string
	values config.Values
	req    invoke.Request
}

var resolvedKeys = []string{
	config.KeySelector,
	config.KeyCommand,
	config.KeyEnabled,
	config.KeyFormatOnSave,
	config.KeyErrorStyle,
	config.KeyTimeout,
	config.KeyPaths,
	config.KeyTabSize,
	config.KeyTranslateTabs,
}

// Format resolves the formatter for req.Scope and runs it on req.Text.
// The formatter runs on the calling goroutine; only resolution happens
// on the loop.
//
// A failed run returns a *FormatError after surfacing it according to
// the formatter's error_style. When nothing matches the surface shows
// NoFormatterForFile or NoFormatterForSelection and the error wraps
// registry.ErrNoMatch. A disabled match shows FormatterDisabled and the
// error wraps registry.ErrDisabled.
func (a *Application) Format(ctx context.Context, req Request) (Result, error) {
	a.metrics.RecordRequest()
	if req.Text == "" {
		return Result{}, nil
	}

	j, err := a.prepare(ctx, req)
	if err != nil {
		return Result{Formatter: j.name, Text: req.Text}, err
	}
	return a.run(ctx, j, req.Text)
}

// FormatFile formats the whole text of c.
func (a *Application) FormatFile(ctx context.Context, c registry.Context, sc, text string) (Result, error) {
	return a.Format(ctx, Request{Context: c, Scope: sc, Text: text})
}

// FormatSelection formats each non-empty region. The results line up with
// regions; a region that failed keeps its text. Errors of all regions are
// combined.
func (a *Application) FormatSelection(ctx context.Context, c registry.Context, regions []Region) ([]Result, error) {
	results := make([]Result, len(regions))
	var errs error
	for i, r := range regions {
		res, err := a.Format(ctx, Request{
			Context:   c,
			Scope:     r.Scope,
			Text:      r.Text,
			Selection: true,
		})
		results[i] = res
		errs = multierr.Append(errs, err)
	}
	return results, errs
}

// OnPreSave formats text when the formatter for sc is enabled and has
// format_on_save set. It reports whether a formatter ran.
func (a *Application) OnPreSave(ctx context.Context, c registry.Context, sc, text string) (Result, bool, error) {
	var trigger bool
	err := a.loop.Call(ctx, func() error {
		f := a.registry.Lookup(c, sc)
		trigger = f != nil && f.Enabled() && f.FormatOnSave()
		return nil
	})
	if err != nil {
		return Result{Text: text}, false, err
	}
	if !trigger {
		return Result{Text: text}, false, nil
	}

	res, err := a.FormatFile(ctx, c, sc, text)
	return res, true, err
}

// FormatAsync runs Format on a new goroutine and hands the outcome to
// done on that goroutine. Shutdown waits for pending requests.
func (a *Application) FormatAsync(ctx context.Context, req Request, done func(Result, error)) {
	if !a.running.Load() {
		if done != nil {
			done(Result{Text: req.Text}, ErrNotRunning)
		}
		return
	}

	a.async.Add(1)
	go func() {
		defer a.async.Done()
		res, err := a.Format(ctx, req)
		if done != nil {
			done(res, err)
		}
	}()
}

// Resolve reports which formatter sc resolves to for c and where each of
// its settings comes from. Disabled formatters resolve too.
func (a *Application) Resolve(ctx context.Context, c registry.Context, sc string) (Resolution, error) {
	var res Resolution
	err := a.loop.Call(ctx, func() error {
		f := a.registry.Lookup(c, sc)
		if f == nil {
			return fmt.Errorf("%w: %q", registry.ErrNoMatch, sc)
		}
		var err error
		res, err = describe(f)
		return err
	})
	return res, err
}

// Describe is Resolve by formatter name.
func (a *Application) Describe(ctx context.Context, c registry.Context, name string) (Resolution, error) {
	var res Resolution
	err := a.loop.Call(ctx, func() error {
		f := a.registry.Formatter(c, name)
		if f == nil {
			return fmt.Errorf("%w: formatter %q is not declared", registry.ErrNoMatch, name)
		}
		var err error
		res, err = describe(f)
		return err
	})
	return res, err
}

func describe(f *registry.Formatter) (Resolution, error) {
	res := Resolution{
		Formatter: f.Name(),
		Enabled:   f.Enabled(),
		Origins:   make(map[string]string, len(resolvedKeys)),
	}
	for _, key := range resolvedKeys {
		if origin := f.Origin(key); origin != "" {
			res.Origins[key] = origin
		}
	}
	v, err := f.Values()
	res.Values = v
	return res, err
}

func (a *Application) prepare(ctx context.Context, req Request) (job, error) {
	if req.Context == nil {
		return job{}, ErrNoContext
	}

	var j job
	err := a.loop.Call(ctx, func() error {
		if !a.registry.Registered(req.Context) {
			return fmt.Errorf("%w: %s", registry.ErrUnknownContext, req.Context.ID())
		}

		f, err := a.registry.Resolve(req.Context, req.Scope)
		switch {
		case errors.Is(err, registry.ErrNoMatch):
			a.metrics.RecordNoMatch()
			if req.Selection {
				a.surface.Status(NoFormatterForSelection)
			} else {
				a.surface.Status(NoFormatterForFile)
			}
			return err
		case errors.Is(err, registry.ErrDisabled):
			a.metrics.RecordDisabled()
			j.name = f.Name()
			a.logger.Debug("formatter disabled", zap.String("formatter", f.Name()))
			a.surface.Status(fmt.Sprintf(FormatterDisabled, f.Name()))
			return err
		case err != nil:
			return err
		}

		j.name = f.Name()
		v, err := f.Values()
		if err != nil {
			a.logger.Warn("invalid formatter settings", zap.Error(err))
			a.surface.Status(err.Error())
			return err
		}
		j.values = v
		j.window = windowID(req.Context)
		j.req = buildRequest(req, v)
		return nil
	})
	return j, err
}

func (a *Application) run(ctx context.Context, j job, text string) (Result, error) {
	start := time.Now()
	out, err := a.runner.Run(ctx, j.req)

	var ierr *invoke.Error
	timedOut := errors.As(err, &ierr) && ierr.TimedOut
	changed := err == nil && out != text
	a.metrics.RecordRun(time.Since(start), err != nil, timedOut, changed)

	if err != nil {
		ferr := &FormatError{Formatter: j.name, Style: j.values.ErrorStyle, Err: err}
		a.report(j.window, ferr)
		return Result{Formatter: j.name, Text: text}, ferr
	}

	a.surface.ClearPanel(j.window)
	return Result{Formatter: j.name, Text: out, Changed: changed}, nil
}

func buildRequest(req Request, v config.Values) invoke.Request {
	file := req.File
	if file == "" {
		if d, ok := req.Context.(*registry.Document); ok {
			file = d.Path()
		}
	}
	project := projectDir(req.Context)

	dir := project
	if file != "" {
		dir = filepath.Dir(file)
	}
	if info, err := os.Stat(dir); dir != "" && (err != nil || !info.IsDir()) {
		dir = ""
	}

	return invoke.Request{
		Name:    v.Name,
		Command: v.Command,
		Input:   req.Text,
		Dir:     dir,
		Timeout: v.Timeout,
		Paths:   v.Paths,
		Vars: invoke.Variables{
			File:        file,
			ProjectPath: project,
			TabSize:     v.TabSize,
			Indent:      v.Indent(),
		},
	}
}

func projectDir(c registry.Context) string {
	if f, ok := c.Project().(*layer.File); ok && f != nil {
		return filepath.Dir(f.Path())
	}
	return ""
}

func windowID(c registry.Context) string {
	switch c := c.(type) {
	case *registry.Window:
		return c.ID()
	case *registry.Document:
		if w := c.Window(); w != nil {
			return w.ID()
		}
	}
	return ""
}
