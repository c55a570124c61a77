package layer

import (
	"reflect"
	"testing"
)

func TestGetByKeys(t *testing.T) {
	data := map[string]any{
		"timeout": 60,
		"formatters": map[string]any{
			"go": map[string]any{
				"selector": "source.go",
				"cmd":      []any{"gofmt"},
			},
		},
	}

	tests := []struct {
		keys  []string
		want  any
		found bool
	}{
		{[]string{"timeout"}, 60, true},
		{[]string{"formatters", "go", "selector"}, "source.go", true},
		{[]string{"formatters", "rust"}, nil, false},
		{[]string{"formatters", "go", "selector", "x"}, nil, false},
		{[]string{"timeout", "x"}, nil, false},
		{nil, nil, false},
	}

	for _, tt := range tests {
		got, found := GetByKeys(data, tt.keys...)
		if found != tt.found {
			t.Errorf("GetByKeys(%v): found = %v, want %v", tt.keys, found, tt.found)
		}
		if found && got != tt.want {
			t.Errorf("GetByKeys(%v) = %v, want %v", tt.keys, got, tt.want)
		}
	}

	if _, found := GetByKeys(nil, "timeout"); found {
		t.Error("GetByKeys(nil) should find nothing")
	}
}

func TestSetByKeys(t *testing.T) {
	data := make(map[string]any)

	if !SetByKeys(data, []string{"formatters", "go", "selector"}, "source.go") {
		t.Fatal("SetByKeys should create intermediate maps")
	}
	SetByKeys(data, []string{"formatters", "go", "timeout"}, 5)
	SetByKeys(data, []string{"formatters", "go", "timeout"}, 10)
	SetByKeys(data, []string{"error_style"}, "console")

	want := map[string]any{
		"error_style": "console",
		"formatters": map[string]any{
			"go": map[string]any{"selector": "source.go", "timeout": 10},
		},
	}
	if !reflect.DeepEqual(data, want) {
		t.Errorf("data = %v, want %v", data, want)
	}

	if SetByKeys(nil, []string{"a"}, 1) || SetByKeys(data, nil, 1) {
		t.Error("SetByKeys should refuse nil data and empty keys")
	}
}

func TestDeleteByKeys(t *testing.T) {
	data := map[string]any{
		"formatters": map[string]any{
			"go": map[string]any{"selector": "source.go", "enabled": false},
		},
	}

	if !DeleteByKeys(data, "formatters", "go", "enabled") {
		t.Error("DeleteByKeys should report an existing key")
	}
	if _, found := GetByKeys(data, "formatters", "go", "enabled"); found {
		t.Error("formatters.go.enabled should be deleted")
	}
	if _, found := GetByKeys(data, "formatters", "go", "selector"); !found {
		t.Error("formatters.go.selector should remain")
	}

	if DeleteByKeys(data, "formatters", "rust", "enabled") {
		t.Error("DeleteByKeys should report false for a missing key")
	}
	if DeleteByKeys(nil, "timeout") {
		t.Error("DeleteByKeys should report false for nil data")
	}
}

func TestFlattenMap(t *testing.T) {
	data := map[string]any{
		"timeout": 60,
		"formatters": map[string]any{
			"go": map[string]any{
				"selector": "source.go",
				"enabled":  true,
			},
			"empty": map[string]any{},
		},
	}

	flattened := FlattenMap(data)

	want := map[string]any{
		"timeout":                60,
		"formatters.go.selector": "source.go",
		"formatters.go.enabled":  true,
		"formatters.empty":       map[string]any{},
	}
	if !reflect.DeepEqual(flattened, want) {
		t.Errorf("FlattenMap() = %v, want %v", flattened, want)
	}
}

func TestChangedFormatters(t *testing.T) {
	old := map[string]any{
		"timeout": 60,
		"formatters": map[string]any{
			"go":   map[string]any{"selector": "source.go", "cmd": []any{"gofmt"}},
			"rust": map[string]any{"selector": "source.rust"},
			"c":    map[string]any{"selector": "source.c"},
		},
	}
	new := map[string]any{
		"timeout": 60,
		"formatters": map[string]any{
			"go":     map[string]any{"selector": "source.go", "cmd": []any{"gofmt", "-s"}},
			"c":      map[string]any{"selector": "source.c"},
			"python": map[string]any{"selector": "source.python"},
		},
	}

	names, global := ChangedFormatters(old, new)
	if !reflect.DeepEqual(names, []string{"go", "python", "rust"}) {
		t.Errorf("names = %v, want [go python rust]", names)
	}
	if global {
		t.Error("global should be false when only formatter blocks changed")
	}

	new["timeout"] = 30
	names, global = ChangedFormatters(old, new)
	if !global {
		t.Error("global should be true when a top-level key changed")
	}
	if len(names) != 3 {
		t.Errorf("names = %v, want 3 entries", names)
	}
}

func TestChangedFormatters_Unchanged(t *testing.T) {
	data := map[string]any{
		"formatters": map[string]any{
			"go": map[string]any{"selector": "source.go"},
		},
	}

	names, global := ChangedFormatters(data, cloneMap(data))
	if len(names) != 0 || global {
		t.Errorf("ChangedFormatters() = %v, %v; want no changes", names, global)
	}
}

func TestSetByKeys_NonMapIntermediate(t *testing.T) {
	data := map[string]any{"timeout": 60}

	if SetByKeys(data, []string{"timeout", "inner"}, 1) {
		t.Error("SetByKeys should refuse to descend through a scalar")
	}
	if data["timeout"] != 60 {
		t.Errorf("timeout = %v, want 60", data["timeout"])
	}
}

func TestDiffMaps(t *testing.T) {
	old := map[string]any{
		"formatters": map[string]any{
			"go": map[string]any{"timeout": 10, "selector": "source.go"},
		},
		"error_style": "panel",
	}
	new := map[string]any{
		"formatters": map[string]any{
			"go": map[string]any{"timeout": 20, "selector": "source.go"},
		},
		"paths": []any{"/opt/bin"},
	}

	added, modified, removed := DiffMaps(old, new)

	if !reflect.DeepEqual(added, []string{"paths"}) {
		t.Errorf("added = %v, want [paths]", added)
	}
	if !reflect.DeepEqual(modified, []string{"formatters.go.timeout"}) {
		t.Errorf("modified = %v, want [formatters.go.timeout]", modified)
	}
	if !reflect.DeepEqual(removed, []string{"error_style"}) {
		t.Errorf("removed = %v, want [error_style]", removed)
	}
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		a        any
		b        any
		expected bool
	}{
		{"nil nil", nil, nil, true},
		{"nil non-nil", nil, 1, false},
		{"non-nil nil", 1, nil, false},
		{"same int", 1, 1, true},
		{"different int", 1, 2, false},
		{"same string", "a", "a", true},
		{"different string", "a", "b", false},
		{"same map", map[string]any{"a": 1}, map[string]any{"a": 1}, true},
		{"different map", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
		{"same slice", []any{1, 2}, []any{1, 2}, true},
		{"different slice", []any{1, 2}, []any{1, 3}, false},
		{"different length slice", []any{1}, []any{1, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := valuesEqual(tt.a, tt.b)
			if got != tt.expected {
				t.Errorf("valuesEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
