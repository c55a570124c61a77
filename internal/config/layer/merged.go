package layer

// writable is implemented by layers that can refuse merged writes.
type writable interface {
	Writable() bool
}

func isWritable(s any) bool {
	if w, ok := s.(writable); ok {
		return w.Writable()
	}
	return true
}

// isNil catches typed nil pointers stored in a Settings interface.
func isNil(s Settings) bool {
	switch v := s.(type) {
	case nil:
		return true
	case *Layer:
		return v == nil
	case *File:
		return v == nil
	case *Merged:
		return v == nil
	case *subView:
		return v == nil
	default:
		return false
	}
}

// Merged composes an ordered list of layers, most specific first, into a
// single read-through view. Reads return the first layer that defines a
// key; writes go to the first writable layer and never to fallbacks.
type Merged struct {
	name   string
	layers []Settings
}

// NewMerged creates a merged view over layers. Nil layers are skipped so
// callers can pass optional layers (no project, no document) directly.
func NewMerged(name string, layers ...Settings) *Merged {
	m := &Merged{name: name, layers: make([]Settings, 0, len(layers))}
	for _, l := range layers {
		if isNil(l) {
			continue
		}
		m.layers = append(m.layers, l)
	}
	return m
}

// Name implements Settings.
func (m *Merged) Name() string {
	return m.name
}

// Get implements Settings.
func (m *Merged) Get(key string) (any, bool) {
	v, _, ok := m.Lookup(key)
	return v, ok
}

// Lookup returns the effective value for key together with the layer it
// came from.
func (m *Merged) Lookup(key string) (any, Settings, bool) {
	for _, l := range m.layers {
		if v, ok := l.Get(key); ok {
			return v, l, true
		}
	}
	return nil, nil, false
}

// Origin returns the name of the layer that provides key, or "".
func (m *Merged) Origin(key string) string {
	_, l, ok := m.Lookup(key)
	if !ok {
		return ""
	}
	return l.Name()
}

// Set implements Settings. The value is stored in the most specific
// writable layer.
func (m *Merged) Set(key string, value any) error {
	target := m.Target()
	if target == nil {
		return ErrReadOnly
	}
	return target.Set(key, value)
}

// Delete implements Settings. Only the write target is cleared, so a
// value defined by a fallback layer becomes visible again.
func (m *Merged) Delete(key string) error {
	target := m.Target()
	if target == nil {
		return ErrReadOnly
	}
	return target.Delete(key)
}

// Target returns the layer writes go to, or nil if every layer is read-only.
func (m *Merged) Target() Settings {
	for _, l := range m.layers {
		if isWritable(l) {
			return l
		}
	}
	return nil
}

// Writable reports whether any layer accepts writes.
func (m *Merged) Writable() bool {
	return m.Target() != nil
}

// Formatter implements Settings by merging each layer's formatter view.
func (m *Merged) Formatter(name string) Settings {
	views := make([]Settings, len(m.layers))
	for i, l := range m.layers {
		views[i] = l.Formatter(name)
	}
	return NewMerged(m.name+"/"+name, views...)
}

// Formatters implements Settings. Names are unioned in layer order, each
// layer contributing its own declaration order.
func (m *Merged) Formatters() []string {
	var names []string
	seen := make(map[string]bool)
	for _, l := range m.layers {
		for _, n := range l.Formatters() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// Layers returns a copy of the composed layers, most specific first.
func (m *Merged) Layers() []Settings {
	result := make([]Settings, len(m.layers))
	copy(result, m.layers)
	return result
}
