package registry

import (
	"fmt"

	"github.com/dshills/keyfmt/internal/config"
)

// Enable sets enabled=true for the named formatter, or at the top level
// when name is empty. The value is written to the most specific writable
// layer of ctx.
func (r *Registry) Enable(ctx Context, name string) error {
	return r.toggle(ctx, name, config.KeyEnabled, true)
}

// Disable sets enabled=false. See Enable.
func (r *Registry) Disable(ctx Context, name string) error {
	return r.toggle(ctx, name, config.KeyEnabled, false)
}

// EnableFormatOnSave sets format_on_save=true. See Enable.
func (r *Registry) EnableFormatOnSave(ctx Context, name string) error {
	return r.toggle(ctx, name, config.KeyFormatOnSave, true)
}

// DisableFormatOnSave sets format_on_save=false. See Enable.
func (r *Registry) DisableFormatOnSave(ctx Context, name string) error {
	return r.toggle(ctx, name, config.KeyFormatOnSave, false)
}

// IsEnabled reports the effective enabled setting.
func (r *Registry) IsEnabled(ctx Context, name string) bool {
	s := r.Settings(ctx, name)
	if s == nil {
		return false
	}
	return config.Bool(s, config.KeyEnabled, true)
}

// IsFormatOnSaveEnabled reports the effective format_on_save setting.
func (r *Registry) IsFormatOnSaveEnabled(ctx Context, name string) bool {
	s := r.Settings(ctx, name)
	if s == nil {
		return false
	}
	return config.Bool(s, config.KeyFormatOnSave, false)
}

func (r *Registry) toggle(ctx Context, name, key string, value bool) error {
	s := r.Settings(ctx, name)
	if s == nil {
		return ErrUnknownContext
	}
	if err := s.Set(key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	r.UpdateAll()
	return nil
}
