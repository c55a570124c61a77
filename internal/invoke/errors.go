package invoke

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCommand is returned for a request without command tokens.
	ErrEmptyCommand = errors.New("empty command")

	// ErrTimeout is wrapped by an *Error whose process outlived its timeout.
	ErrTimeout = errors.New("formatter timed out")

	// ErrUnknownBuiltin is returned for an "@name" command that is not
	// registered.
	ErrUnknownBuiltin = errors.New("unknown built-in formatter")
)

// Error describes a formatter invocation that failed: the tool could not
// start, exited non-zero, was killed or timed out.
type Error struct {
	// Command is the expanded command line.
	Command []string

	// ExitCode is the exit status, or -1 if the tool never exited normally.
	ExitCode int

	// TimedOut is true when the tool was killed by the timeout.
	TimedOut bool

	// Stdout and Stderr hold whatever the tool wrote before failing.
	Stdout string
	Stderr string

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the exit description followed by the tool's stderr, or
// its stdout when stderr is empty.
func (e *Error) Error() string {
	var b strings.Builder
	cmd := strings.Join(e.Command, " ")

	switch {
	case e.TimedOut:
		fmt.Fprintf(&b, "command %q timed out", cmd)
	case e.ExitCode > 0:
		fmt.Fprintf(&b, "command %q returned non-zero exit status %d", cmd, e.ExitCode)
	case e.Err != nil:
		fmt.Fprintf(&b, "command %q failed: %v", cmd, e.Err)
	default:
		fmt.Fprintf(&b, "command %q failed", cmd)
	}

	if detail := e.Detail(); detail != "" {
		b.WriteByte('\n')
		b.WriteString(detail)
	}
	return b.String()
}

// Detail returns the captured output worth showing to the user.
func (e *Error) Detail() string {
	if s := strings.TrimRight(e.Stderr, "\r\n"); s != "" {
		return s
	}
	return strings.TrimRight(e.Stdout, "\r\n")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
