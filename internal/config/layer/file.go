package layer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/keyfmt/internal/config/loader"
)

// WriteHook observes successful writes to a File. It runs after the
// document has been saved, outside the layer's lock.
type WriteHook func(f *File, key string, oldValue, newValue any, deleted bool)

// File is a layer persisted in a settings document. The layer may live
// under a namespaced key of a larger document, as the "settings.format"
// block of a project file does.
type File struct {
	mu sync.RWMutex

	name   string
	source Source
	fs     loader.FileSystem
	root   []string
	doc    *loader.Document
	hook   WriteHook

	// ModTime is when the layer was last loaded or saved.
	ModTime time.Time

	// ReadOnly rejects writes even if the format supports them.
	ReadOnly bool
}

// OpenFile loads the document at path. A missing file yields an empty
// layer; the file is created on the first write.
func OpenFile(name string, source Source, fsys loader.FileSystem, path string, root ...string) (*File, error) {
	if fsys == nil {
		fsys = loader.DefaultFS()
	}

	doc, err := loader.Load(fsys, path)
	if err != nil {
		return nil, err
	}

	return &File{
		name:    name,
		source:  source,
		fs:      fsys,
		root:    append([]string(nil), root...),
		doc:     doc,
		ModTime: time.Now(),
	}, nil
}

// Name implements Settings.
func (f *File) Name() string {
	return f.name
}

// Source returns the layer kind.
func (f *File) Source() Source {
	return f.source
}

// Path returns the backing file path.
func (f *File) Path() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc.Path
}

// Exists reports whether the backing file existed at the last load.
func (f *File) Exists() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc.Exists
}

// OnWrite installs a hook called after every successful Set or Delete,
// including writes made through formatter views and merged views.
func (f *File) OnWrite(h WriteHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = h
}

// Get implements Settings.
func (f *File) Get(key string) (any, bool) {
	parts := splitKey(key)
	if parts == nil {
		return nil, false
	}
	return f.getPath(parts)
}

// Set implements Settings. The document is saved before Set returns.
func (f *File) Set(key string, value any) error {
	parts := splitKey(key)
	if parts == nil {
		return ErrInvalidKey
	}
	return f.setPath(parts, value)
}

// Delete implements Settings. The document is saved before Delete returns.
func (f *File) Delete(key string) error {
	parts := splitKey(key)
	if parts == nil {
		return ErrInvalidKey
	}
	return f.deletePath(parts)
}

// Formatter implements Settings.
func (f *File) Formatter(name string) Settings {
	return newSubView(f, f.name, name)
}

// Formatters implements Settings.
func (f *File) Formatters() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data := f.dataLocked()
	if data == nil {
		return nil
	}
	return orderedNames(data, f.doc.Order(f.fullPath(FormattersKey)...))
}

// Writable reports whether merged writes may target this layer.
func (f *File) Writable() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.ReadOnly && f.doc.Writable()
}

// Data returns a deep copy of the layer's values below its namespace.
func (f *File) Data() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneMap(f.dataLocked())
}

// Reload re-reads the backing file and reports which formatter blocks
// changed and whether any top-level key changed.
func (f *File) Reload() (changed []string, global bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := loader.Load(f.fs, f.doc.Path)
	if err != nil {
		return nil, false, err
	}

	before := f.dataLocked()
	f.doc = doc
	f.ModTime = time.Now()
	changed, global = ChangedFormatters(before, f.dataLocked())
	return changed, global, nil
}

func (f *File) getPath(parts []string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return GetByKeys(f.doc.Data, f.fullPath(parts...)...)
}

func (f *File) setPath(parts []string, value any) error {
	f.mu.Lock()

	if f.ReadOnly || !f.doc.Writable() {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrReadOnly, f.doc.Path)
	}
	full := f.fullPath(parts...)
	old, _ := GetByKeys(f.doc.Data, full...)
	if err := f.doc.Set(full, value); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := f.saveLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(f, strings.Join(parts, "."), old, value, false)
	}
	return nil
}

func (f *File) deletePath(parts []string) error {
	f.mu.Lock()

	if f.ReadOnly || !f.doc.Writable() {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrReadOnly, f.doc.Path)
	}
	full := f.fullPath(parts...)
	old, ok := GetByKeys(f.doc.Data, full...)
	if !ok {
		f.mu.Unlock()
		return nil
	}
	if err := f.doc.Delete(full); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := f.saveLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(f, strings.Join(parts, "."), old, nil, true)
	}
	return nil
}

func (f *File) saveLocked() error {
	if err := f.doc.Save(f.fs); err != nil {
		return err
	}
	f.ModTime = time.Now()
	return nil
}

// dataLocked returns the map at the layer's namespace, or nil.
func (f *File) dataLocked() map[string]any {
	if len(f.root) == 0 {
		return f.doc.Data
	}
	v, ok := GetByKeys(f.doc.Data, f.root...)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

func (f *File) fullPath(parts ...string) []string {
	full := make([]string, 0, len(f.root)+len(parts))
	full = append(full, f.root...)
	return append(full, parts...)
}
