package layer

import (
	"errors"
	"reflect"
	"testing"
)

// stack builds the effective view of one formatter the way the registry
// does: document, project, global, defaults.
func stack(doc, project, global, defaults Settings, name string) *Merged {
	return NewMerged("effective/"+name,
		formatterOf(doc, name), doc,
		formatterOf(project, name), project,
		formatterOf(global, name), global,
		defaults,
	)
}

func formatterOf(s Settings, name string) Settings {
	if isNil(s) {
		return nil
	}
	return s.Formatter(name)
}

func TestMerged_FirstMatchWins(t *testing.T) {
	defaults := NewLayerWithData("defaults", SourceBuiltin, map[string]any{
		"timeout": 60, "error_style": "panel", "enabled": true,
	})
	global := NewLayerWithData("global", SourceGlobal, map[string]any{
		"timeout": 30,
		"formatters": map[string]any{
			"go": map[string]any{"timeout": 10},
		},
	})
	project := NewLayerWithData("project", SourceProject, map[string]any{
		"error_style": "console",
	})

	m := stack(nil, project, global, defaults, "go")

	tests := []struct {
		key    string
		want   any
		origin string
	}{
		{"timeout", 10, "global/go"},
		{"error_style", "console", "project"},
		{"enabled", true, "defaults"},
	}
	for _, tt := range tests {
		v, ok := m.Get(tt.key)
		if !ok || v != tt.want {
			t.Errorf("Get(%q) = %v, %v; want %v", tt.key, v, ok, tt.want)
		}
		if o := m.Origin(tt.key); o != tt.origin {
			t.Errorf("Origin(%q) = %q, want %q", tt.key, o, tt.origin)
		}
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should not be found")
	}
	if o := m.Origin("missing"); o != "" {
		t.Errorf("Origin(missing) = %q, want empty", o)
	}
}

func TestMerged_DeleteFallsThrough(t *testing.T) {
	global := NewLayerWithData("global", SourceGlobal, map[string]any{"timeout": 30})
	project := NewLayer("project", SourceProject)

	m := NewMerged("m", project, global)

	if err := m.Set("timeout", 5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := m.Get("timeout"); v != 5 {
		t.Errorf("timeout = %v, want 5", v)
	}
	if v, _ := global.Get("timeout"); v != 30 {
		t.Errorf("global timeout = %v, want 30 (fallback layers must not be written)", v)
	}

	if err := m.Delete("timeout"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v, _ := m.Get("timeout"); v != 30 {
		t.Errorf("timeout after delete = %v, want fallback 30", v)
	}
}

func TestMerged_WritesSkipReadOnlyLayers(t *testing.T) {
	doc := NewDocumentLayer("document")
	project := NewLayer("project", SourceProject)
	global := NewLayer("global", SourceGlobal)

	m := stack(doc, project, global, nil, "go")

	if err := m.Set("format_on_save", true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := project.Get("formatters.go.format_on_save"); v != true {
		t.Errorf("project formatters.go.format_on_save = %v, want true", v)
	}
	if _, ok := doc.Get("format_on_save"); ok {
		t.Error("document layer must not receive merged writes")
	}

	if err := doc.Override("format_on_save", false); err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if v, _ := m.Get("format_on_save"); v != false {
		t.Errorf("document override should win, got %v", v)
	}
}

func TestMerged_WritesGoToGlobalWithoutProject(t *testing.T) {
	global := NewLayer("global", SourceGlobal)

	m := stack(NewDocumentLayer("document"), nil, global, nil, "go")

	if err := m.Set("enabled", false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := global.Get("formatters.go.enabled"); v != false {
		t.Errorf("global formatters.go.enabled = %v, want false", v)
	}
}

func TestMerged_AllReadOnly(t *testing.T) {
	m := NewMerged("m", NewDocumentLayer("document"), Empty("defaults"))

	if m.Writable() {
		t.Error("Writable() should be false")
	}
	if err := m.Set("k", 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set() error = %v, want ErrReadOnly", err)
	}
	if err := m.Delete("k"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Delete() error = %v, want ErrReadOnly", err)
	}
}

func TestMerged_SkipsNilLayers(t *testing.T) {
	var missing *Layer
	global := NewLayerWithData("global", SourceGlobal, map[string]any{"timeout": 1})

	m := NewMerged("m", nil, missing, global)

	if got := len(m.Layers()); got != 1 {
		t.Fatalf("len(Layers()) = %d, want 1", got)
	}
	if v, _ := m.Get("timeout"); v != 1 {
		t.Errorf("timeout = %v, want 1", v)
	}
}

func TestMerged_FormattersUnion(t *testing.T) {
	global := NewLayerWithOrder("global", SourceGlobal, map[string]any{
		"formatters": map[string]any{
			"rust": map[string]any{}, "go": map[string]any{},
		},
	}, []string{"rust", "go"})
	project := NewLayerWithOrder("project", SourceProject, map[string]any{
		"formatters": map[string]any{
			"go": map[string]any{}, "elm": map[string]any{},
		},
	}, []string{"go", "elm"})

	m := NewMerged("m", project, global)

	want := []string{"go", "elm", "rust"}
	if got := m.Formatters(); !reflect.DeepEqual(got, want) {
		t.Errorf("Formatters() = %v, want %v", got, want)
	}
}

func TestMerged_FormatterView(t *testing.T) {
	global := NewLayerWithData("global", SourceGlobal, map[string]any{
		"formatters": map[string]any{
			"go": map[string]any{"selector": "source.go", "cmd": []any{"gofmt"}},
		},
	})
	project := NewLayerWithData("project", SourceProject, map[string]any{
		"formatters": map[string]any{
			"go": map[string]any{"selector": "source.go | source.gomod"},
		},
	})

	f := NewMerged("m", project, global).Formatter("go")

	if v, _ := f.Get("selector"); v != "source.go | source.gomod" {
		t.Errorf("selector = %v, want project override", v)
	}
	if v, _ := f.Get("cmd"); !reflect.DeepEqual(v, []any{"gofmt"}) {
		t.Errorf("cmd = %v, want [gofmt]", v)
	}
}

func TestMerged_RoundTrip(t *testing.T) {
	global := NewLayer("global", SourceGlobal)
	m := stack(nil, nil, global, nil, "go")

	values := map[string]any{
		"selector":    "source.go",
		"timeout":     15,
		"error_style": "dialog",
	}
	for k, v := range values {
		if err := m.Set(k, v); err != nil {
			t.Fatalf("Set(%q) error = %v", k, err)
		}
	}
	for k, want := range values {
		if got, _ := m.Get(k); got != want {
			t.Errorf("Get(%q) = %v, want %v", k, got, want)
		}
	}
}
