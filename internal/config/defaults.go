package config

import "github.com/dshills/keyfmt/internal/config/layer"

// Defaults returns the read-only built-in layer consulted last.
func Defaults() *layer.Layer {
	l := layer.NewLayerWithData("defaults", layer.SourceBuiltin, map[string]any{
		KeyEnabled:       true,
		KeyFormatOnSave:  false,
		KeyErrorStyle:    ErrorStylePanel.String(),
		KeyTimeout:       60,
		KeyTabSize:       4,
		KeyTranslateTabs: false,
	})
	l.ReadOnly = true
	return l
}

// Starter returns the formatter definitions written by "keyfmt init",
// in priority order.
func Starter() []StarterFormatter {
	return []StarterFormatter{
		{"clang", "source.c | source.c++ | source.objc | source.objc++", []string{"clang-format", "--assume-filename=${file}"}},
		{"elm", "source.elm", []string{"elm-format", "--stdin"}},
		{"go", "source.go", []string{"gofmt"}},
		{"haskell", "source.haskell", []string{"hindent"}},
		{"javascript", "source.js | source.ts | source.jsx", []string{"prettier", "--stdin-filepath", "${file}"}},
		{"json", "source.json", []string{"@json"}},
		{"python", "source.python", []string{"yapf"}},
		{"rust", "source.rust", []string{"rustfmt", "--emit=stdout"}},
		{"swift", "source.swift", []string{"swiftformat"}},
		{"terraform", "source.terraform", []string{"terraform", "fmt", "-"}},
	}
}

// StarterFormatter is one definition in the starter settings.
type StarterFormatter struct {
	Name     string
	Selector string
	Command  []string
}
