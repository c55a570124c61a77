package invoke

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// BuiltinPrefix marks commands that run in-process.
const BuiltinPrefix = "@"

// ErrInvalidJSON is returned by the @json formatter.
var ErrInvalidJSON = errors.New("invalid JSON")

// Builtin formats text in-process. args are the expanded command tokens
// after the builtin name.
type Builtin func(input string, args []string, vars Variables) (string, error)

// defaultBuiltins returns the formatters available without a process.
func defaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"json": FormatJSON,
	}
}

// FormatJSON re-indents a JSON document, keeping key order. The indent
// is vars.Indent, or four spaces.
func FormatJSON(input string, _ []string, vars Variables) (string, error) {
	if !gjson.Valid(input) {
		return "", ErrInvalidJSON
	}

	indent := vars.Indent
	if indent == "" {
		indent = strings.Repeat(" ", 4)
	}

	out := pretty.PrettyOptions([]byte(input), &pretty.Options{
		Width:    80,
		Prefix:   "",
		Indent:   indent,
		SortKeys: false,
	})
	return string(out), nil
}
