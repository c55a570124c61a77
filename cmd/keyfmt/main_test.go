package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"

	"github.com/dshills/keyfmt/internal/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testSettings = `{
  "formatters": {
    "upper": {
      "selector": "source.upper",
      "cmd": ["tr", "a-z", "A-Z"]
    },
    "json": {
      "selector": "source.json",
      "cmd": "@json",
      "format_on_save": true
    },
    "broken": {
      "selector": "source.broken",
      "cmd": ["sh", "-c", "echo broken input >&2; exit 1"]
    }
  }
}`

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, dir, stdin string, args ...string) result {
	t.Helper()

	var out, errOut bytes.Buffer
	c := newCLI(strings.NewReader(stdin), &out, &errOut)
	root := newRootCmd(c)
	root.SetArgs(append([]string{"--config-dir", dir}, args...))

	err := root.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func configDir(t *testing.T, settings string) string {
	t.Helper()
	dir := t.TempDir()
	if settings != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "keyfmt.json"), []byte(settings), 0o644))
	}
	return dir
}

func TestVersion(t *testing.T) {
	r := execute(t, t.TempDir(), "", "version")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "keyfmt dev")
}

func TestFormat_Stdin(t *testing.T) {
	dir := configDir(t, testSettings)

	r := execute(t, dir, "hello\n", "format", "--scope", "source.upper")
	require.NoError(t, r.err)
	assert.Equal(t, "HELLO\n", r.stdout)
}

func TestFormat_StdinFilename(t *testing.T) {
	dir := configDir(t, testSettings)

	r := execute(t, dir, `{"a":[1,2]}`, "format", "--stdin-filename", "data.json", "--tab-size", "2", "--spaces")
	require.NoError(t, r.err)
	assert.Equal(t, "{\n  \"a\": [1, 2]\n}\n", r.stdout)
}

func TestFormat_UnknownScope(t *testing.T) {
	dir := configDir(t, testSettings)

	r := execute(t, dir, "x", "format")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "--scope")
}

func TestFormat_NoMatch(t *testing.T) {
	dir := configDir(t, testSettings)

	r := execute(t, dir, "plain", "format", "--scope", "text.plain")
	require.ErrorIs(t, r.err, registry.ErrNoMatch)
	assert.Contains(t, r.stderr, "[Format] No formatter for file")
	assert.Empty(t, r.stdout)

	// Already shown by the surface.
	var errOut bytes.Buffer
	code := exitCode(newCLI(nil, nil, &errOut), r.err)
	assert.Equal(t, 1, code)
	assert.Empty(t, errOut.String())
}

func TestFormat_Failure(t *testing.T) {
	dir := configDir(t, testSettings)

	r := execute(t, dir, "x", "format", "--scope", "source.broken")
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "broken input")
}

func TestFormat_Files(t *testing.T) {
	dir := configDir(t, `{
  "formatters": {
    "json": {"selector": "source.json", "cmd": "@json"}
  }
}`)
	work := t.TempDir()
	messy := filepath.Join(work, "messy.json")
	clean := filepath.Join(work, "clean.json")
	require.NoError(t, os.WriteFile(messy, []byte(`{"a":1}`), 0o600))
	require.NoError(t, os.WriteFile(clean, []byte("{\n    \"a\": 1\n}\n"), 0o644))

	r := execute(t, dir, "", "format", "--check", messy, clean)
	require.ErrorIs(t, r.err, errNeedsFormatting)
	assert.Equal(t, messy+"\n", r.stdout)

	r = execute(t, dir, "", "format", messy)
	require.NoError(t, r.err)
	assert.Equal(t, "{\n    \"a\": 1\n}\n", r.stdout)

	r = execute(t, dir, "", "format", "-w", messy, clean)
	require.NoError(t, r.err)
	assert.Empty(t, r.stdout)

	data, err := os.ReadFile(messy)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"a\": 1\n}\n", string(data))

	info, err := os.Stat(messy)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	r = execute(t, dir, "", "format", "--check", messy, clean)
	require.NoError(t, r.err)
}

func TestFormat_WriteNeedsFiles(t *testing.T) {
	r := execute(t, configDir(t, testSettings), "x", "format", "-w", "--scope", "source.upper")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "--write")
}

func TestResolve(t *testing.T) {
	dir := configDir(t, testSettings)

	r := execute(t, dir, "", "resolve", "--scope", "source.upper")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "formatter")
	assert.Contains(t, r.stdout, "upper")
	assert.Contains(t, r.stdout, "global/upper")
	assert.Contains(t, r.stdout, "defaults")

	r = execute(t, dir, "", "resolve", "--json", "x.json")
	require.NoError(t, r.err)
	js := r.stdout
	require.True(t, gjson.Valid(js), js)
	assert.Equal(t, "json", gjson.Get(js, "formatter").String())
	assert.Equal(t, "source.json", gjson.Get(js, "scope").String())
	assert.True(t, gjson.Get(js, "settings.format_on_save.value").Bool())
	assert.Equal(t, "global/json", gjson.Get(js, "settings.format_on_save.origin").String())
	assert.Equal(t, float64(60), gjson.Get(js, "settings.timeout.value").Float())
	assert.Equal(t, "defaults", gjson.Get(js, "settings.timeout.origin").String())
	assert.Equal(t, "@json", gjson.Get(js, "settings.cmd.value.0").String())

	r = execute(t, dir, "", "resolve", "--scope", "text.plain")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "no formatter for scope")
}

func TestList(t *testing.T) {
	dir := configDir(t, testSettings)

	r := execute(t, dir, "", "list")
	require.NoError(t, r.err)

	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "upper"))
	assert.True(t, strings.HasPrefix(lines[2], "json"))
	assert.Contains(t, lines[2], "yes")
	assert.True(t, strings.HasPrefix(lines[3], "broken"))
}

func TestToggles(t *testing.T) {
	dir := configDir(t, testSettings)
	path := filepath.Join(dir, "keyfmt.json")

	r := execute(t, dir, "", "disable", "upper")
	require.NoError(t, r.err)
	assert.Equal(t, "upper: enabled off\n", r.stdout)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(data, "formatters.upper.enabled").Bool())
	assert.True(t, gjson.GetBytes(data, "formatters.upper.enabled").Exists())

	r = execute(t, dir, "hello", "format", "--scope", "source.upper")
	require.Error(t, r.err)
	assert.True(t, errors.Is(r.err, registry.ErrDisabled))
	assert.Contains(t, r.stderr, "[Format] Formatter upper is disabled")

	var errOut bytes.Buffer
	assert.Equal(t, 1, exitCode(newCLI(nil, nil, &errOut), r.err))
	assert.Empty(t, errOut.String())

	r = execute(t, dir, "", "enable", "upper")
	require.NoError(t, r.err)
	assert.Equal(t, "upper: enabled on\n", r.stdout)

	r = execute(t, dir, "", "format-on-save", "enable")
	require.NoError(t, r.err)
	assert.Equal(t, "all formatters: format on save on\n", r.stdout)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(data, "format_on_save").Bool())
}

func TestToggles_Project(t *testing.T) {
	dir := configDir(t, testSettings)
	project := filepath.Join(t.TempDir(), "app.keyfmt-project")
	require.NoError(t, os.WriteFile(project, []byte(`{"folders": [{"path": "."}], "settings": {"format": {}}}`), 0o644))

	r := execute(t, dir, "", "--project", project, "format-on-save", "disable", "json")
	require.NoError(t, r.err)
	assert.Equal(t, "json: format on save off\n", r.stdout)

	data, err := os.ReadFile(project)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(data, "settings.format.formatters.json.format_on_save").Exists())
	assert.Equal(t, ".", gjson.GetBytes(data, "folders.0.path").String())

	global, err := os.ReadFile(filepath.Join(dir, "keyfmt.json"))
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(global, "formatters.json.format_on_save").Bool())
}

func TestCheck(t *testing.T) {
	r := execute(t, configDir(t, testSettings), "", "check")
	require.NoError(t, r.err)
	assert.Equal(t, "ok\n", r.stdout)

	r = execute(t, configDir(t, `{"formatters": {"go": {"selector": "source.go", "cmd": "gofmt", "error_style": "popup"}}}`), "", "check")
	require.ErrorIs(t, r.err, errProblems)
	assert.Contains(t, r.stdout, "error_style")

	dir := configDir(t, `{"colour": "red", "formatters": {"go": {"selector": "source.go", "cmd": "gofmt"}}}`)
	r = execute(t, dir, "", "check")
	require.NoError(t, r.err)
	assert.Equal(t, "ok\n", r.stdout)

	r = execute(t, dir, "", "check", "--strict")
	require.ErrorIs(t, r.err, errProblems)
	assert.Contains(t, r.stdout, "colour: unknown setting")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	r := execute(t, dir, "", "init")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "wrote 10 formatters")

	data, err := os.ReadFile(filepath.Join(dir, "keyfmt.json"))
	require.NoError(t, err)
	assert.Equal(t, "source.go", gjson.GetBytes(data, "formatters.go.selector").String())
	assert.Equal(t, "gofmt", gjson.GetBytes(data, "formatters.go.cmd.0").String())

	r = execute(t, dir, "", "list")
	require.NoError(t, r.err)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 11)
	assert.True(t, strings.HasPrefix(lines[1], "clang"))
	assert.True(t, strings.HasPrefix(lines[10], "terraform"))

	r = execute(t, dir, "", "init")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "--force")

	r = execute(t, dir, "", "init", "--force")
	require.NoError(t, r.err)
}

func TestScopeFor(t *testing.T) {
	tests := map[string]string{
		"main.go":         "source.go",
		"/src/lib.RS":     "source.rust",
		"include/x.hpp":   "source.c++",
		"Makefile":        "",
		"infra/main.tf":   "source.terraform",
		"notes.unknownxt": "",
	}
	for path, want := range tests {
		if got := scopeFor(path); got != want {
			t.Errorf("scopeFor(%q) = %q, want %q", path, got, want)
		}
	}
}
