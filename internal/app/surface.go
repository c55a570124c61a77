package app

import (
	"io"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/dshills/keyfmt/internal/config"
)

// Surface is where the host shows messages to the user. window is the ID
// of the window the request came from and may be empty.
//
// Implementations must be safe for concurrent use.
type Surface interface {
	// Status shows a short transient message.
	Status(msg string)

	// ShowPanel replaces the content of the window's output panel.
	ShowPanel(window, msg string)

	// ClearPanel removes the window's output panel.
	ClearPanel(window string)

	// ShowDialog shows a modal error message.
	ShowDialog(msg string)
}

// Console is a Surface that writes to a terminal. Panels and dialogs are
// printed inline.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	prefix *color.Color
	errc   *color.Color
	bold   *color.Color
}

// NewConsole returns a Console writing to w. Colors follow
// color.NoColor.
func NewConsole(w io.Writer) *Console {
	return &Console{
		out:    w,
		prefix: color.New(color.FgCyan),
		errc:   color.New(color.FgRed),
		bold:   color.New(color.FgRed, color.Bold),
	}
}

func (c *Console) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefix.Fprint(c.out, "[Format] ")
	io.WriteString(c.out, msg+"\n")
}

func (c *Console) ShowPanel(window, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefix.Fprint(c.out, "[Format] ")
	c.errc.Fprintln(c.out, msg)
}

func (c *Console) ClearPanel(string) {}

func (c *Console) ShowDialog(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bold.Fprint(c.out, "error: ")
	io.WriteString(c.out, msg+"\n")
}

// report surfaces err according to its style. It never swallows the
// error: callers return it as well.
func (a *Application) report(window string, err *FormatError) {
	a.logger.Debug("format failed",
		zap.String("formatter", err.Formatter),
		zap.Stringer("error_style", err.Style),
		zap.Error(err.Err))

	switch err.Style {
	case config.ErrorStyleNone:
	case config.ErrorStyleConsole:
		a.consoleMu.Lock()
		a.consoleColor.Fprintf(a.console, "[Format] %s\n", err.Message())
		a.consoleMu.Unlock()
	case config.ErrorStylePanel:
		a.surface.ShowPanel(window, err.Message())
	case config.ErrorStyleDialog:
		a.surface.ShowDialog(err.Message())
	}
}
