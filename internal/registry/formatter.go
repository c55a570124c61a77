package registry

import (
	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/config/layer"
)

// Formatter is a formatter definition resolved for one context. It pairs
// the formatter's name with its effective settings view.
//
// A Formatter keeps its identity across Update for as long as its name
// stays declared; only its decoded values are dropped.
type Formatter struct {
	name     string
	settings *layer.Merged

	decoded bool
	values  config.Values
	err     error
}

func newFormatter(name string, settings *layer.Merged) *Formatter {
	return &Formatter{name: name, settings: settings}
}

// Name returns the formatter name.
func (f *Formatter) Name() string { return f.name }

// Settings returns the effective settings view. Writes through it land in
// the most specific writable layer.
func (f *Formatter) Settings() layer.Settings { return f.settings }

// Origin names the layer the effective value of key comes from.
func (f *Formatter) Origin(key string) string { return f.settings.Origin(key) }

// Values decodes the effective settings. The result is kept until the
// next Update.
func (f *Formatter) Values() (config.Values, error) {
	if !f.decoded {
		f.values, f.err = config.Decode(f.name, f.settings)
		f.decoded = true
	}
	return f.values, f.err
}

// Enabled reports the effective enabled setting.
func (f *Formatter) Enabled() bool {
	return config.Bool(f.settings, config.KeyEnabled, true)
}

// FormatOnSave reports the effective format_on_save setting.
func (f *Formatter) FormatOnSave() bool {
	return config.Bool(f.settings, config.KeyFormatOnSave, false)
}

func (f *Formatter) reset(settings *layer.Merged) {
	f.settings = settings
	f.decoded = false
	f.values = config.Values{}
	f.err = nil
}
