// Package app hosts the formatter engine: it owns the event loop that
// serializes registry access, runs format requests, surfaces failures and
// keeps the registry current as settings change.
package app

import (
	"errors"
	"fmt"

	"github.com/dshills/keyfmt/internal/config"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates the application is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNotRunning indicates the application is not running.
	ErrNotRunning = errors.New("application not running")

	// ErrNoStore indicates Options without a settings store.
	ErrNoStore = errors.New("settings store is required")

	// ErrNoContext indicates a request without a window or document.
	ErrNoContext = errors.New("no window or document")
)

// FormatError is a formatter invocation failure together with how the
// formatter wants it shown.
type FormatError struct {
	Formatter string
	Style     config.ErrorStyle
	Err       error
}

func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Formatter, e.Err)
}

func (e *FormatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is the text shown to the user: the underlying error without the
// formatter prefix.
func (e *FormatError) Message() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
