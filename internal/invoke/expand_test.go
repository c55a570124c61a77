package invoke

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExpandString(t *testing.T) {
	vars := Variables{
		File:        "/work/src/main.go",
		ProjectPath: "/work",
		TabSize:     4,
		Indent:      "    ",
		Env: func(name string) (string, bool) {
			switch name {
			case "HOME":
				return "/home/dev", true
			case "EMPTY":
				return "", true
			}
			return "", false
		},
	}

	tests := []struct {
		in   string
		want string
	}{
		{"${file}", "/work/src/main.go"},
		{"${file_name}", "main.go"},
		{"${file_base_name}", "main"},
		{"${file_path}", "/work/src"},
		{"${file_extension}", "go"},
		{"${project_path}/.clang-format", "/work/.clang-format"},
		{"--indent=${tab_size}", "--indent=4"},
		{"[${indent}]", "[    ]"},
		{"$HOME/bin", "/home/dev/bin"},
		{"${HOME}", "/home/dev"},
		{"${env:HOME}", "/home/dev"},
		{"${env:MISSING:fallback}", "fallback"},
		{"${env:EMPTY:fallback}", "fallback"},
		{"${env:MISSING}", ""},
		{"${temp_file:none}", "none"},
		{"${unknown}", "${unknown}"},
		{"$unknown", "$unknown"},
		{"${unknown:def}", "def"},
		{"plain", "plain"},
		{"${file_name}:${file_extension}", "main.go:go"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandString(tt.in, vars); got != tt.want {
				t.Errorf("ExpandString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandString_UnsavedBuffer(t *testing.T) {
	vars := Variables{Env: func(string) (string, bool) { return "", false }}

	for _, in := range []string{"${file}", "${file_name}", "${file_base_name}", "${file_path}", "${file_extension}", "${tab_size}"} {
		if got := ExpandString(in, vars); got != "" {
			t.Errorf("ExpandString(%q) = %q, want empty", in, got)
		}
	}
	if got := ExpandString("${file_name:untitled}", vars); got != "untitled" {
		t.Errorf("default not applied: %q", got)
	}
}

func TestExpand(t *testing.T) {
	args := []string{"rustfmt", "--edition", "${EDITION:2021}", "--config-path", "${project_path}"}
	got := Expand(args, Variables{
		ProjectPath: "/p",
		Env:         func(string) (string, bool) { return "", false },
	})

	want := []string{"rustfmt", "--edition", "2021", "--config-path", "/p"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
	}
	if args[2] != "${EDITION:2021}" {
		t.Error("Expand modified its input")
	}
}

func TestUsesTempFile(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"gofmt"}, false},
		{[]string{"elm-format", "--yes", "${temp_file}"}, true},
		{[]string{"tool", "--file=${temp_file}"}, true},
		{[]string{"tool", "${temp_file:x}"}, true},
		{[]string{"tool", "${file}"}, false},
	}
	for _, tt := range tests {
		if got := UsesTempFile(tt.args); got != tt.want {
			t.Errorf("UsesTempFile(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
