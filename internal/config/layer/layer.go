// Package layer provides the configuration layers formatter settings are
// read from and written to.
//
// Every concrete layer (built-in defaults, the persisted global settings
// file, a project document, a document's transient overrides) satisfies the
// same Settings contract. Layers are composed with Merged, which gives
// first-match-wins precedence over an ordered list.
package layer

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// FormattersKey is the top-level key holding per-formatter blocks.
const FormattersKey = "formatters"

// ErrReadOnly is returned when writing to a read-only layer.
var ErrReadOnly = errors.New("configuration layer is read-only")

// ErrInvalidKey is returned for empty or malformed keys.
var ErrInvalidKey = errors.New("invalid setting key")

// Settings is the uniform read/write contract over one key-value store.
type Settings interface {
	// Name identifies the layer (e.g. "global", "project", "document").
	Name() string

	// Get returns the value stored under key. Keys may be dot-separated
	// paths into nested tables.
	Get(key string) (any, bool)

	// Set stores value under key. Persisted layers save before returning.
	Set(key string, value any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Formatter returns a sub-view scoped to formatters.<name>.
	Formatter(name string) Settings

	// Formatters returns the formatter names declared in this layer,
	// in declaration order.
	Formatters() []string
}

// GetOr returns the value stored under key, or def when no value exists.
func GetOr(s Settings, key string, def any) any {
	if s == nil {
		return def
	}
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// Source indicates where a configuration layer came from.
type Source uint8

const (
	// SourceBuiltin represents hard-coded defaults.
	SourceBuiltin Source = iota
	// SourceGlobal represents the persisted global settings file.
	SourceGlobal
	// SourceProject represents the settings block of a project document.
	SourceProject
	// SourceDocument represents transient overrides of one open document.
	SourceDocument
	// SourceMerged represents a composed view.
	SourceMerged
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceGlobal:
		return "global"
	case SourceProject:
		return "project"
	case SourceDocument:
		return "document"
	case SourceMerged:
		return "merged"
	default:
		return "unknown"
	}
}

// Layer is an in-memory configuration layer. It backs the built-in
// defaults and per-document transient overrides.
type Layer struct {
	// LayerName identifies the layer.
	LayerName string

	// Source indicates what kind of layer this is.
	Source Source

	// Data holds the configuration values as a nested map.
	Data map[string]any

	// ModTime is when the layer was last modified.
	ModTime time.Time

	// ReadOnly rejects Set and Delete. Document layers are read-only for
	// merged writes and are changed through Override instead.
	ReadOnly bool

	// order records formatter declaration order.
	order []string
}

// NewLayer creates a new empty layer.
func NewLayer(name string, source Source) *Layer {
	return &Layer{
		LayerName: name,
		Source:    source,
		Data:      make(map[string]any),
		ModTime:   time.Now(),
	}
}

// NewLayerWithData creates a new layer with initial data. Formatter names
// already present are ordered lexically; use NewLayerWithOrder to keep the
// declaration order of a parsed document.
func NewLayerWithData(name string, source Source, data map[string]any) *Layer {
	return NewLayerWithOrder(name, source, data, nil)
}

// NewLayerWithOrder creates a layer with initial data and a known
// formatter declaration order.
func NewLayerWithOrder(name string, source Source, data map[string]any, order []string) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{
		LayerName: name,
		Source:    source,
		Data:      data,
		ModTime:   time.Now(),
		order:     append([]string(nil), order...),
	}
}

// NewDocumentLayer creates the transient override layer of one document.
func NewDocumentLayer(name string) *Layer {
	l := NewLayer(name, SourceDocument)
	l.ReadOnly = true
	return l
}

// Name implements Settings.
func (l *Layer) Name() string {
	return l.LayerName
}

// Get implements Settings.
func (l *Layer) Get(key string) (any, bool) {
	parts := splitKey(key)
	if parts == nil {
		return nil, false
	}
	return l.getPath(parts)
}

// Set implements Settings.
func (l *Layer) Set(key string, value any) error {
	if l.ReadOnly {
		return ErrReadOnly
	}
	return l.setKey(key, value)
}

// Delete implements Settings.
func (l *Layer) Delete(key string) error {
	if l.ReadOnly {
		return ErrReadOnly
	}
	return l.deleteKey(key)
}

// Override sets a value regardless of ReadOnly. It is how the editor
// installs transient per-document settings.
func (l *Layer) Override(key string, value any) error {
	return l.setKey(key, value)
}

// ClearOverride removes a value regardless of ReadOnly.
func (l *Layer) ClearOverride(key string) error {
	return l.deleteKey(key)
}

// Formatter implements Settings.
func (l *Layer) Formatter(name string) Settings {
	return newSubView(l, l.LayerName, name)
}

// Formatters implements Settings.
func (l *Layer) Formatters() []string {
	return orderedNames(l.Data, l.order)
}

// Writable reports whether merged writes may target this layer.
func (l *Layer) Writable() bool {
	return !l.ReadOnly
}

func (l *Layer) setKey(key string, value any) error {
	parts := splitKey(key)
	if parts == nil {
		return ErrInvalidKey
	}
	return l.setPath(parts, value)
}

func (l *Layer) deleteKey(key string) error {
	parts := splitKey(key)
	if parts == nil {
		return ErrInvalidKey
	}
	return l.deletePath(parts)
}

func (l *Layer) getPath(parts []string) (any, bool) {
	return GetByKeys(l.Data, parts...)
}

func (l *Layer) setPath(parts []string, value any) error {
	if l.Data == nil {
		l.Data = make(map[string]any)
	}
	if !SetByKeys(l.Data, parts, value) {
		return ErrInvalidKey
	}
	l.order = recordOrder(l.order, parts)
	l.ModTime = time.Now()
	return nil
}

func (l *Layer) deletePath(parts []string) error {
	if DeleteByKeys(l.Data, parts...) {
		l.ModTime = time.Now()
	}
	return nil
}

// backing is the path-level store a sub-view reads and writes through.
type backing interface {
	getPath(parts []string) (any, bool)
	setPath(parts []string, value any) error
	deletePath(parts []string) error
}

// subView scopes a backing store to formatters.<name>.
type subView struct {
	name      string
	formatter string
	base      backing
}

func newSubView(base backing, layerName, formatter string) *subView {
	return &subView{
		name:      layerName + "/" + formatter,
		formatter: formatter,
		base:      base,
	}
}

func (v *subView) Name() string { return v.name }

func (v *subView) path(key string) []string {
	parts := splitKey(key)
	if parts == nil || v.formatter == "" {
		return nil
	}
	return append([]string{FormattersKey, v.formatter}, parts...)
}

func (v *subView) Get(key string) (any, bool) {
	p := v.path(key)
	if p == nil {
		return nil, false
	}
	return v.base.getPath(p)
}

func (v *subView) Set(key string, value any) error {
	p := v.path(key)
	if p == nil {
		return ErrInvalidKey
	}
	return v.base.setPath(p, value)
}

func (v *subView) Delete(key string) error {
	p := v.path(key)
	if p == nil {
		return ErrInvalidKey
	}
	return v.base.deletePath(p)
}

// Formatter returns an empty view; formatter blocks do not nest.
func (v *subView) Formatter(string) Settings { return Empty(v.name) }

func (v *subView) Formatters() []string { return nil }

// Writable reports whether the underlying layer accepts merged writes.
func (v *subView) Writable() bool {
	return isWritable(v.base)
}

// Empty returns a read-only layer with no values.
func Empty(name string) Settings {
	l := NewLayer(name, SourceBuiltin)
	l.ReadOnly = true
	return l
}

// splitKey splits a dotted key, rejecting empty components.
func splitKey(key string) []string {
	if key == "" {
		return nil
	}
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}

// recordOrder appends a newly declared formatter name to order.
func recordOrder(order []string, parts []string) []string {
	if len(parts) < 2 || parts[0] != FormattersKey {
		return order
	}
	for _, n := range order {
		if n == parts[1] {
			return order
		}
	}
	return append(order, parts[1])
}

// orderedNames lists the formatter names present in data. Names known to
// order come first in that order; the rest follow lexically.
func orderedNames(data map[string]any, order []string) []string {
	block, ok := data[FormattersKey].(map[string]any)
	if !ok || len(block) == 0 {
		return nil
	}

	names := make([]string, 0, len(block))
	seen := make(map[string]bool, len(block))
	for _, n := range order {
		if _, ok := block[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}

	var rest []string
	for n := range block {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// cloneMap creates a deep copy of a map.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

// cloneSlice creates a deep copy of a slice.
func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = cloneValue(val)
	}
	return dst
}
