package loader

import (
	"io/fs"
	"reflect"
	"strings"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) WriteFile(path string, data []byte, _ fs.FileMode) error {
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"keyfmt.json", FormatJSON, true},
		{"app.keyfmt-project", FormatJSON, true},
		{"config.toml", FormatTOML, true},
		{"keyfmt.yaml", FormatYAML, true},
		{"keyfmt.YML", FormatYAML, true},
		{"keyfmt.ini", 0, false},
	}

	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		if (err == nil) != tt.ok {
			t.Errorf("FormatFor(%q) error = %v, want ok=%v", tt.path, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("FormatFor(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	doc, err := Load(NewMemFS(), "/settings/keyfmt.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Exists {
		t.Error("Exists = true for missing file")
	}
	if len(doc.Data) != 0 {
		t.Errorf("Data = %v, want empty", doc.Data)
	}
}

func TestLoad_JSON(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/keyfmt.json", `{
    "timeout": 30,
    "formatters": {
        "rust": {"selector": "source.rust", "cmd": ["rustfmt"]},
        "go": {"selector": "source.go", "cmd": ["gofmt"]},
        "c": {"selector": "source.c", "cmd": ["clang-format"]}
    }
}`)

	doc, err := Load(memfs, "/keyfmt.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if doc.Data["timeout"] != float64(30) {
		t.Errorf("timeout = %v (%T), want 30", doc.Data["timeout"], doc.Data["timeout"])
	}

	got := doc.Order("formatters")
	want := []string{"rust", "go", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestLoad_JSONInvalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/keyfmt.json", `{"timeout": `)

	_, err := Load(memfs, "/keyfmt.json")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("error = %T, want *ParseError", err)
	}
}

func TestLoad_JSONNotObject(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/keyfmt.json", `[1, 2]`)

	if _, err := Load(memfs, "/keyfmt.json"); err == nil {
		t.Fatal("expected error for non-object document")
	}
}

func TestJSON_SetKeepsOrder(t *testing.T) {
	doc, err := Parse("/keyfmt.json", FormatJSON, []byte(`{"formatters": {"zig": {"cmd": ["zig", "fmt"]}, "go": {"cmd": ["gofmt"]}}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := doc.Set([]string{"formatters", "go", "enabled"}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := doc.Set([]string{"formatters", "elm", "selector"}, "source.elm"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got := doc.Order("formatters")
	want := []string{"zig", "go", "elm"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}

	goBlock := doc.Data["formatters"].(map[string]any)["go"].(map[string]any)
	if goBlock["enabled"] != false {
		t.Errorf("enabled = %v, want false", goBlock["enabled"])
	}
}

func TestJSON_SetEscapesDots(t *testing.T) {
	doc, err := Parse("/keyfmt.json", FormatJSON, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := doc.Set([]string{"formatters", "clang.format", "timeout"}, 5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	block, ok := doc.Data["formatters"].(map[string]any)["clang.format"].(map[string]any)
	if !ok {
		t.Fatalf("formatters = %v, want key clang.format", doc.Data["formatters"])
	}
	if block["timeout"] != float64(5) {
		t.Errorf("timeout = %v, want 5", block["timeout"])
	}
}

func TestJSON_Delete(t *testing.T) {
	doc, err := Parse("/keyfmt.json", FormatJSON, []byte(`{"timeout": 10, "enabled": true}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := doc.Delete([]string{"timeout"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := doc.Data["timeout"]; ok {
		t.Error("timeout still present after Delete")
	}
	if doc.Data["enabled"] != true {
		t.Errorf("enabled = %v, want true", doc.Data["enabled"])
	}
}

func TestDocument_Save(t *testing.T) {
	memfs := NewMemFS()
	doc, err := Load(memfs, "/keyfmt.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := doc.Set([]string{"format_on_save"}, true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := doc.Save(memfs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load(memfs, "/keyfmt.json")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.Exists {
		t.Error("Exists = false after Save")
	}
	if reloaded.Data["format_on_save"] != true {
		t.Errorf("format_on_save = %v, want true", reloaded.Data["format_on_save"])
	}
}

func TestLoad_TOML(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
timeout = 20

[format.formatters.python]
selector = "source.python"
cmd = ["black", "-"]

[format.formatters.go]
selector = "source.go"
cmd = ["gofmt"]
`)

	doc, err := Load(memfs, "/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Format != FormatTOML || doc.Writable() {
		t.Errorf("Format = %v, Writable = %v, want toml and false", doc.Format, doc.Writable())
	}
	if doc.Data["timeout"] != int64(20) {
		t.Errorf("timeout = %v (%T), want 20", doc.Data["timeout"], doc.Data["timeout"])
	}
	if got := doc.Order("format", "formatters"); !reflect.DeepEqual(got, []string{"python", "go"}) {
		t.Errorf("Order() = %v, want [python go]", got)
	}
}

func TestLoad_TOMLMissing(t *testing.T) {
	doc, err := Load(NewMemFS(), "/missing.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Exists || len(doc.Data) != 0 {
		t.Errorf("Exists = %v, Data = %v, want a missing empty document", doc.Exists, doc.Data)
	}
}

func TestTOML_Order(t *testing.T) {
	raw := `
[format.formatters.python]
selector = "source.python"

[format.formatters.go]
selector = "source.go"

[format.formatters.python.extra]
x = 1
`
	doc, err := Parse("/config.toml", FormatTOML, []byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := doc.Order("format", "formatters")
	want := []string{"python", "go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestTOML_OrderDottedKeys(t *testing.T) {
	raw := `
[format]
formatters.elm.selector = "source.elm"
formatters.go.selector = "source.go"
formatters.elm.cmd = ["elm-format", "--stdin"]
`
	doc, err := Parse("/config.toml", FormatTOML, []byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := doc.Order("format", "formatters")
	want := []string{"elm", "go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestTOML_OrderInlineTable(t *testing.T) {
	raw := `formatters = { rust = { selector = "source.rust" }, c = { selector = "source.c" } }`
	doc, err := Parse("/config.toml", FormatTOML, []byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := doc.Order("formatters")
	want := []string{"rust", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestTOML_NotWritable(t *testing.T) {
	doc, err := Parse("/config.toml", FormatTOML, []byte(`timeout = 1`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Writable() {
		t.Error("TOML document should not be writable")
	}
	if err := doc.Set([]string{"timeout"}, 2); err == nil {
		t.Error("expected error setting a TOML document")
	}
}

func TestTOML_ParseError(t *testing.T) {
	_, err := Parse("/config.toml", FormatTOML, []byte("timeout = = 1"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "/config.toml") {
		t.Errorf("error %q should mention the path", err)
	}
}

func TestYAML_LoadAndOrder(t *testing.T) {
	raw := `# user settings
timeout: 15
formatters:
  terraform:
    selector: source.terraform
    cmd: [terraform, fmt, "-"]
  elm:
    selector: source.elm
`
	doc, err := Parse("/keyfmt.yaml", FormatYAML, []byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if doc.Data["timeout"] != 15 {
		t.Errorf("timeout = %v (%T), want 15", doc.Data["timeout"], doc.Data["timeout"])
	}

	got := doc.Order("formatters")
	want := []string{"terraform", "elm"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestYAML_SetAndDelete(t *testing.T) {
	raw := "formatters:\n  terraform:\n    selector: source.terraform\n  elm:\n    selector: source.elm\n"
	doc, err := Parse("/keyfmt.yaml", FormatYAML, []byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := doc.Set([]string{"formatters", "elm", "enabled"}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := doc.Set([]string{"formatters", "ocaml", "selector"}, "source.ocaml"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got := doc.Order("formatters")
	want := []string{"terraform", "elm", "ocaml"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}

	elm := doc.Data["formatters"].(map[string]any)["elm"].(map[string]any)
	if elm["enabled"] != false {
		t.Errorf("enabled = %v, want false", elm["enabled"])
	}

	if err := doc.Delete([]string{"formatters", "terraform"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got = doc.Order("formatters")
	want = []string{"elm", "ocaml"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order after delete = %v, want %v", got, want)
	}
}

func TestParseError_Error(t *testing.T) {
	tests := []struct {
		err  *ParseError
		want string
	}{
		{&ParseError{Path: "a.json", Message: "bad"}, "parse error in a.json: bad"},
		{&ParseError{Path: "a.json", Line: 3, Message: "bad"}, "parse error in a.json at line 3: bad"},
		{&ParseError{Path: "a.json", Line: 3, Column: 7, Message: "bad"}, "parse error in a.json at line 3, column 7: bad"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
