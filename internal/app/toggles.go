package app

import (
	"context"

	"github.com/dshills/keyfmt/internal/registry"
)

// Enable turns the named formatter on for c. An empty name sets the
// top-level default. A nil c writes the global settings.
func (a *Application) Enable(ctx context.Context, c registry.Context, name string) error {
	return a.loop.Call(ctx, func() error {
		return a.registry.Enable(c, name)
	})
}

// Disable turns the named formatter off.
func (a *Application) Disable(ctx context.Context, c registry.Context, name string) error {
	return a.loop.Call(ctx, func() error {
		return a.registry.Disable(c, name)
	})
}

// EnableFormatOnSave turns format on save on.
func (a *Application) EnableFormatOnSave(ctx context.Context, c registry.Context, name string) error {
	return a.loop.Call(ctx, func() error {
		return a.registry.EnableFormatOnSave(c, name)
	})
}

// DisableFormatOnSave turns format on save off.
func (a *Application) DisableFormatOnSave(ctx context.Context, c registry.Context, name string) error {
	return a.loop.Call(ctx, func() error {
		return a.registry.DisableFormatOnSave(c, name)
	})
}

// IsEnabled reports the effective enabled setting.
func (a *Application) IsEnabled(ctx context.Context, c registry.Context, name string) (bool, error) {
	var on bool
	err := a.loop.Call(ctx, func() error {
		on = a.registry.IsEnabled(c, name)
		return nil
	})
	return on, err
}

// IsFormatOnSaveEnabled reports the effective format_on_save setting.
func (a *Application) IsFormatOnSaveEnabled(ctx context.Context, c registry.Context, name string) (bool, error) {
	var on bool
	err := a.loop.Call(ctx, func() error {
		on = a.registry.IsFormatOnSaveEnabled(c, name)
		return nil
	})
	return on, err
}
