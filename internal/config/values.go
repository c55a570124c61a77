package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dshills/keyfmt/internal/config/layer"
)

// Setting keys understood in every layer and formatter block.
const (
	KeySelector      = "selector"
	KeyCommand       = "cmd"
	KeyEnabled       = "enabled"
	KeyFormatOnSave  = "format_on_save"
	KeyErrorStyle    = "error_style"
	KeyTimeout       = "timeout"
	KeyPaths         = "paths"
	KeyTabSize       = "tab_size"
	KeyTranslateTabs = "translate_tabs_to_spaces"
)

// maxTimeoutSeconds bounds timeouts to what a time.Duration can hold.
const maxTimeoutSeconds = float64(math.MaxInt64) / float64(time.Second)

// ErrorStyle selects how invocation failures are shown.
type ErrorStyle uint8

const (
	// ErrorStyleNone only logs the failure.
	ErrorStyleNone ErrorStyle = iota
	// ErrorStyleConsole prints the failure to the console.
	ErrorStyleConsole
	// ErrorStylePanel shows the failure in an output panel.
	ErrorStylePanel
	// ErrorStyleDialog shows the failure in a modal dialog.
	ErrorStyleDialog
)

// ParseErrorStyle parses an error_style value. The empty string means none.
func ParseErrorStyle(s string) (ErrorStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ErrorStyleNone, nil
	case "console":
		return ErrorStyleConsole, nil
	case "panel":
		return ErrorStylePanel, nil
	case "dialog":
		return ErrorStyleDialog, nil
	default:
		return ErrorStylePanel, fmt.Errorf("%w: error style %q", ErrInvalidValue, s)
	}
}

// String returns the settings spelling of the style.
func (e ErrorStyle) String() string {
	switch e {
	case ErrorStyleNone:
		return "none"
	case ErrorStyleConsole:
		return "console"
	case ErrorStylePanel:
		return "panel"
	case ErrorStyleDialog:
		return "dialog"
	default:
		return "unknown"
	}
}

// Values is the typed effective configuration of one formatter.
type Values struct {
	Name         string
	Selector     string
	Command      []string
	Enabled      bool
	FormatOnSave bool
	ErrorStyle   ErrorStyle
	Timeout      time.Duration

	// Paths are prepended to PATH for the formatter process.
	Paths []string

	// TabSize and TranslateTabs drive ${tab_size} and ${indent}.
	TabSize       int
	TranslateTabs bool
}

// Indent returns one level of indentation for ${indent}.
func (v Values) Indent() string {
	if v.TranslateTabs && v.TabSize > 0 {
		return strings.Repeat(" ", v.TabSize)
	}
	return "\t"
}

// Decode reads the typed configuration of the named formatter from its
// effective view. A missing or malformed selector or cmd, or a malformed
// optional key, yields a *ConfigurationError.
func Decode(name string, s layer.Settings) (Values, error) {
	v := Values{Name: name}
	fail := func(key string, err error) (Values, error) {
		return Values{Name: name}, &ConfigurationError{Formatter: name, Key: key, Err: err}
	}

	var err error
	if v.Selector, err = Selector(s); err != nil {
		return fail(KeySelector, err)
	}
	if v.Command, err = Command(s); err != nil {
		return fail(KeyCommand, err)
	}

	if v.Enabled, err = boolOr(s, KeyEnabled, true); err != nil {
		return fail(KeyEnabled, err)
	}
	if v.FormatOnSave, err = boolOr(s, KeyFormatOnSave, false); err != nil {
		return fail(KeyFormatOnSave, err)
	}

	style, err := stringOr(s, KeyErrorStyle, ErrorStylePanel.String())
	if err != nil {
		return fail(KeyErrorStyle, err)
	}
	if v.ErrorStyle, err = ParseErrorStyle(style); err != nil {
		return fail(KeyErrorStyle, err)
	}

	secs, err := floatOr(s, KeyTimeout, 60)
	if err != nil {
		return fail(KeyTimeout, err)
	}
	if secs < 0 || math.IsNaN(secs) || secs >= maxTimeoutSeconds {
		return fail(KeyTimeout, fmt.Errorf("%w: timeout %v", ErrInvalidValue, secs))
	}
	v.Timeout = time.Duration(secs * float64(time.Second))

	if v.Paths, err = stringSliceOr(s, KeyPaths, nil); err != nil {
		return fail(KeyPaths, err)
	}

	tab, err := floatOr(s, KeyTabSize, 4)
	if err != nil {
		return fail(KeyTabSize, err)
	}
	v.TabSize = int(tab)
	if v.TranslateTabs, err = boolOr(s, KeyTranslateTabs, false); err != nil {
		return fail(KeyTranslateTabs, err)
	}

	return v, nil
}

// Selector returns the non-blank selector of a formatter view.
func Selector(s layer.Settings) (string, error) {
	raw, ok := s.Get(KeySelector)
	if !ok {
		return "", ErrSettingNotFound
	}
	sel, ok := raw.(string)
	if !ok {
		return "", &TypeError{Key: KeySelector, Expected: "string", Actual: typeName(raw)}
	}
	if strings.TrimSpace(sel) == "" {
		return "", fmt.Errorf("%w: empty selector", ErrInvalidValue)
	}
	return sel, nil
}

// Command returns the non-empty command of a formatter view. A single
// string is split on whitespace.
func Command(s layer.Settings) ([]string, error) {
	raw, ok := s.Get(KeyCommand)
	if !ok {
		return nil, ErrSettingNotFound
	}

	var cmd []string
	if str, ok := raw.(string); ok {
		cmd = strings.Fields(str)
	} else {
		var err error
		if cmd, err = toStringSlice(KeyCommand, raw); err != nil {
			return nil, err
		}
	}
	if len(cmd) == 0 || cmd[0] == "" {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidValue)
	}
	return cmd, nil
}

// Bool returns a boolean setting, falling back to def when absent.
func Bool(s layer.Settings, key string, def bool) bool {
	b, err := boolOr(s, key, def)
	if err != nil {
		return def
	}
	return b
}

func boolOr(s layer.Settings, key string, def bool) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return def, &TypeError{Key: key, Expected: "bool", Actual: typeName(raw)}
	}
	return b, nil
}

func stringOr(s layer.Settings, key, def string) (string, error) {
	raw, ok := s.Get(key)
	if !ok {
		return def, nil
	}
	str, ok := raw.(string)
	if !ok {
		return def, &TypeError{Key: key, Expected: "string", Actual: typeName(raw)}
	}
	return str, nil
}

func floatOr(s layer.Settings, key string, def float64) (float64, error) {
	raw, ok := s.Get(key)
	if !ok {
		return def, nil
	}
	switch val := raw.(type) {
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	default:
		return def, &TypeError{Key: key, Expected: "number", Actual: typeName(raw)}
	}
}

func stringSliceOr(s layer.Settings, key string, def []string) ([]string, error) {
	raw, ok := s.Get(key)
	if !ok {
		return def, nil
	}
	return toStringSlice(key, raw)
}

func toStringSlice(key string, raw any) ([]string, error) {
	switch val := raw.(type) {
	case []string:
		return append([]string(nil), val...), nil
	case []any:
		result := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, &TypeError{Key: key, Expected: "[]string", Actual: typeName(raw)}
			}
			result[i] = s
		}
		return result, nil
	default:
		return nil, &TypeError{Key: key, Expected: "[]string", Actual: typeName(raw)}
	}
}
