package main

import (
	"path/filepath"
	"strings"
)

// extensionScopes maps file extensions to the base scope editors assign
// them.
var extensionScopes = map[string]string{
	".c":         "source.c",
	".h":         "source.c",
	".cc":        "source.c++",
	".cpp":       "source.c++",
	".cxx":       "source.c++",
	".hh":        "source.c++",
	".hpp":       "source.c++",
	".m":         "source.objc",
	".mm":        "source.objc++",
	".elm":       "source.elm",
	".go":        "source.go",
	".hs":        "source.haskell",
	".js":        "source.js",
	".mjs":       "source.js",
	".cjs":       "source.js",
	".jsx":       "source.jsx",
	".ts":        "source.ts",
	".tsx":       "source.tsx",
	".json":      "source.json",
	".py":        "source.python",
	".rs":        "source.rust",
	".swift":     "source.swift",
	".tf":        "source.terraform",
	".tfvars":    "source.terraform",
	".toml":      "source.toml",
	".yaml":      "source.yaml",
	".yml":       "source.yaml",
	".md":        "text.html.markdown",
	".txt":       "text.plain",
}

// scopeFor returns the scope of a file by its extension, or "".
func scopeFor(path string) string {
	return extensionScopes[strings.ToLower(filepath.Ext(path))]
}
