// Package config provides the settings system formatters are configured
// through.
//
// Settings live in layers. From most to least specific:
//
//	┌───────────────────────────────────┐
//	│  Document overrides (transient)   │  ← set by the editor, never saved
//	├───────────────────────────────────┤
//	│  Project, formatters.<name>       │  ← <name>.keyfmt-project,
//	│  Project                          │    under settings.format
//	├───────────────────────────────────┤
//	│  Global, formatters.<name>        │  ← ~/.config/keyfmt/keyfmt.json
//	│  Global                           │
//	├───────────────────────────────────┤
//	│  Built-in defaults                │
//	└───────────────────────────────────┘
//
// The first layer that defines a key wins. Writes go to the most specific
// writable layer, so document overrides are never persisted.
//
// # Sub-packages
//
//   - layer: the Settings contract, in-memory, file-backed and merged layers
//   - loader: settings documents in JSON, TOML and YAML
//   - schema: validation of settings documents
//   - watcher: file watching for live reload
//   - notify: change notification
//
// # Settings Files
//
// The global file may be JSON, TOML or YAML:
//
//	{
//	    "timeout": 30,
//	    "formatters": {
//	        "go": {
//	            "selector": "source.go",
//	            "cmd": ["gofmt"],
//	            "format_on_save": true
//	        }
//	    }
//	}
//
// Formatter order in the file is significant: when two selectors score
// equally, the one declared first wins.
//
// # Typed Access
//
// Decode turns the effective view of one formatter into Values:
//
//	v, err := config.Decode("go", view)
//	var cerr *config.ConfigurationError
//	if errors.As(err, &cerr) {
//	    // selector or cmd missing or malformed
//	}
//
// # Error Handling
//
//   - ErrSettingNotFound: a required setting is absent
//   - ErrTypeMismatch: a value has the wrong type (see TypeError)
//   - ErrInvalidValue: a value has the right type but is not allowed
//   - ConfigurationError: a formatter definition cannot be used
package config
