package loader

import (
	"fmt"
	"io/fs"
	"os"
)

// Document is a parsed settings file that can be edited in place.
type Document struct {
	// Path is where the document was read from.
	Path string

	// Format is the document encoding.
	Format Format

	// Data holds the decoded values.
	Data map[string]any

	// Exists is false when the file was absent at load time.
	Exists bool

	raw   []byte
	codec codec
}

// Load reads and parses the settings document at path. A missing file
// yields an empty document that is created on first save.
func Load(fsys FileSystem, path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	raw, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{
				Path:   path,
				Format: format,
				Data:   make(map[string]any),
				codec:  codecFor(format),
			}, nil
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	doc, err := Parse(path, format, raw)
	if err != nil {
		return nil, err
	}
	doc.Exists = true
	return doc, nil
}

// Parse decodes raw as a document of the given format.
func Parse(path string, format Format, raw []byte) (*Document, error) {
	c := codecFor(format)
	data, err := c.decode(raw)
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	if data == nil {
		data = make(map[string]any)
	}

	return &Document{
		Path:   path,
		Format: format,
		Data:   data,
		raw:    append([]byte(nil), raw...),
		codec:  c,
	}, nil
}

// Order returns the keys of the table at path in declaration order.
// Unknown paths and non-table values yield nil.
func (d *Document) Order(path ...string) []string {
	if len(d.raw) == 0 {
		return nil
	}
	keys, err := d.codec.order(d.raw, path)
	if err != nil {
		return nil
	}
	return keys
}

// Writable reports whether Set and Delete are supported for this format.
func (d *Document) Writable() bool {
	return d.Format != FormatTOML
}

// Set stores value at path, editing the encoded document in place.
func (d *Document) Set(path []string, value any) error {
	raw, err := d.codec.set(d.raw, path, value)
	if err != nil {
		return fmt.Errorf("setting %v in %s: %w", path, d.Path, err)
	}
	return d.replace(raw)
}

// Delete removes the value at path.
func (d *Document) Delete(path []string) error {
	raw, err := d.codec.delete(d.raw, path)
	if err != nil {
		return fmt.Errorf("deleting %v in %s: %w", path, d.Path, err)
	}
	return d.replace(raw)
}

// Bytes returns the current encoded document.
func (d *Document) Bytes() []byte {
	return append([]byte(nil), d.raw...)
}

// Save writes the document to fsys.
func (d *Document) Save(fsys FileSystem) error {
	if err := fsys.WriteFile(d.Path, d.raw, fs.FileMode(0o644)); err != nil {
		return fmt.Errorf("writing settings file %s: %w", d.Path, err)
	}
	d.Exists = true
	return nil
}

func (d *Document) replace(raw []byte) error {
	data, err := d.codec.decode(raw)
	if err != nil {
		return &ParseError{Path: d.Path, Message: err.Error(), Err: err}
	}
	if data == nil {
		data = make(map[string]any)
	}
	d.raw = raw
	d.Data = data
	return nil
}
