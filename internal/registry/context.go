package registry

import "github.com/dshills/keyfmt/internal/config/layer"

// Context is a window or document the registry resolves formatters for.
// Implementations may become invalid at any time; the registry treats
// invalid contexts as unknown.
type Context interface {
	// ID identifies the context. Registering two contexts with the same
	// ID tracks only the first.
	ID() string

	// Valid reports whether the context still exists.
	Valid() bool

	// Project returns the project settings layer, or nil without a project.
	Project() layer.Settings

	// Overrides returns the transient per-document layer, or nil.
	Overrides() layer.Settings
}

// Window is a context backed by an editor window and its optional project.
type Window struct {
	id      string
	project layer.Settings
	closed  bool
}

// NewWindow creates a window context. project may be nil.
func NewWindow(id string, project layer.Settings) *Window {
	return &Window{id: id, project: project}
}

// ID implements Context. A nil window has the empty ID.
func (w *Window) ID() string {
	if w == nil {
		return ""
	}
	return w.id
}

// Valid implements Context.
func (w *Window) Valid() bool { return w != nil && !w.closed }

// Project implements Context.
func (w *Window) Project() layer.Settings {
	if w == nil {
		return nil
	}
	return w.project
}

// Overrides implements Context. Windows carry no transient layer.
func (w *Window) Overrides() layer.Settings { return nil }

// SetProject replaces the window's project. Callers must Update the
// registry afterwards.
func (w *Window) SetProject(project layer.Settings) {
	w.project = project
}

// Close invalidates the window and every document in it.
func (w *Window) Close() { w.closed = true }

// Document is a context backed by one open document. Its transient layer
// holds overrides such as tab_size that the editor supplies and that are
// never persisted.
type Document struct {
	id        string
	path      string
	window    *Window
	overrides *layer.Layer
	closed    bool
}

// NewDocument creates a document context inside window, which may be nil.
func NewDocument(id, path string, window *Window) *Document {
	return &Document{
		id:        id,
		path:      path,
		window:    window,
		overrides: layer.NewDocumentLayer("document:" + id),
	}
}

// ID implements Context. A nil document has the empty ID.
func (d *Document) ID() string {
	if d == nil {
		return ""
	}
	return d.id
}

// Path returns the document's file path, empty for unsaved buffers.
func (d *Document) Path() string { return d.path }

// SetPath records a new file path, as after "save as".
func (d *Document) SetPath(path string) { d.path = path }

// Window returns the owning window, or nil.
func (d *Document) Window() *Window { return d.window }

// Valid implements Context.
func (d *Document) Valid() bool {
	if d == nil || d.closed {
		return false
	}
	return d.window == nil || d.window.Valid()
}

// Project implements Context.
func (d *Document) Project() layer.Settings {
	if d == nil || d.window == nil {
		return nil
	}
	return d.window.Project()
}

// Overrides implements Context.
func (d *Document) Overrides() layer.Settings {
	if d == nil {
		return nil
	}
	return d.overrides
}

// Layer returns the transient layer for the editor to fill.
func (d *Document) Layer() *layer.Layer { return d.overrides }

// Close invalidates the document.
func (d *Document) Close() { d.closed = true }
