package invoke

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Variables are the values substituted into command tokens.
type Variables struct {
	// File is the document path. Empty for unsaved buffers.
	File string

	// ProjectPath is the directory of the project document, if any.
	ProjectPath string

	// TabSize is the indentation width.
	TabSize int

	// Indent is one level of indentation.
	Indent string

	// TempFile is set by the runner when the command uses ${temp_file}.
	TempFile string

	// Env looks up environment variables. Nil means os.LookupEnv.
	Env func(name string) (string, bool)
}

// TempFileVariable is the token that switches a command to in-place mode.
const TempFileVariable = "${temp_file}"

// variablePattern matches ${name}, ${name:default}, ${env:NAME} and $NAME.
var variablePattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// Expand substitutes variables in every token of args.
func Expand(args []string, vars Variables) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = ExpandString(a, vars)
	}
	return out
}

// ExpandString substitutes variables in s. Known variables without a
// value expand to their default or to the empty string; unknown ones
// are left untouched unless a default is given.
func ExpandString(s string, vars Variables) string {
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		var name, def string
		hasDefault := false

		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if env, ok := strings.CutPrefix(inner, "env:"); ok {
				envName, envDefault, _ := strings.Cut(env, ":")
				if v, ok := vars.lookupEnv(envName); ok && v != "" {
					return v
				}
				return envDefault
			}
			if n, d, ok := strings.Cut(inner, ":"); ok {
				name, def, hasDefault = n, d, true
			} else {
				name = inner
			}
		} else {
			name = match[1:]
		}

		if v, known := vars.builtin(name); known {
			if v == "" && hasDefault {
				return def
			}
			return v
		}
		if v, ok := vars.lookupEnv(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// UsesTempFile reports whether any token mentions ${temp_file}.
func UsesTempFile(args []string) bool {
	for _, a := range args {
		if strings.Contains(a, TempFileVariable) || strings.Contains(a, "${temp_file:") {
			return true
		}
	}
	return false
}

func (v Variables) builtin(name string) (string, bool) {
	switch name {
	case "file":
		return v.File, true
	case "file_name":
		if v.File == "" {
			return "", true
		}
		return filepath.Base(v.File), true
	case "file_base_name":
		if v.File == "" {
			return "", true
		}
		base := filepath.Base(v.File)
		return strings.TrimSuffix(base, filepath.Ext(base)), true
	case "file_path":
		if v.File == "" {
			return "", true
		}
		return filepath.Dir(v.File), true
	case "file_extension":
		return strings.TrimPrefix(filepath.Ext(v.File), "."), true
	case "project_path":
		return v.ProjectPath, true
	case "tab_size":
		if v.TabSize <= 0 {
			return "", true
		}
		return strconv.Itoa(v.TabSize), true
	case "indent":
		return v.Indent, true
	case "temp_file":
		return v.TempFile, true
	default:
		return "", false
	}
}

func (v Variables) lookupEnv(name string) (string, bool) {
	if v.Env != nil {
		return v.Env(name)
	}
	return os.LookupEnv(name)
}
