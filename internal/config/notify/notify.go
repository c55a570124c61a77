// Package notify delivers settings change events to interested components.
//
// A change names the layer it happened in and, when known, the formatter
// blocks it touched. The registry uses this to invalidate only what the
// change can affect.
package notify

import (
	"sort"
	"strings"
	"sync"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value was deleted.
	ChangeDelete

	// ChangeReload indicates a layer was re-read from disk.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a settings change event.
type Change struct {
	// Type is the type of change.
	Type ChangeType

	// Layer names the layer that changed, e.g. "global" or a project path.
	Layer string

	// Path is the dot-separated key that changed. Empty for reloads.
	Path string

	// Formatters lists the formatter blocks that changed. For set and
	// delete events it is derived from Path.
	Formatters []string

	// Global is true when a key outside the formatter blocks changed.
	Global bool

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value (nil for deletes).
	NewValue any
}

// Affects reports whether the change may alter the effective settings of
// the named formatter.
func (c Change) Affects(name string) bool {
	if c.Global {
		return true
	}
	for _, n := range c.Formatters {
		if n == name {
			return true
		}
	}
	return false
}

// Scope classifies a key path into the formatter it belongs to, if any.
// "formatters.go.cmd" yields ("go", false); "timeout" yields ("", true).
func Scope(path string) (formatter string, global bool) {
	parts := strings.SplitN(path, ".", 3)
	if parts[0] != "formatters" {
		return "", true
	}
	if len(parts) < 2 {
		// The whole formatters table was replaced.
		return "", true
	}
	return parts[1], false
}

// Observer is called when settings change.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	id       uint64
	path     string
	observer Observer
}

// Notifier fans settings changes out to subscribers.
type Notifier struct {
	mu sync.RWMutex

	entries []entry
	nextID  uint64
	closed  bool
}

// New creates a Notifier. Changes are delivered on the goroutine that
// reports them.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePath("", observer)
}

// SubscribePath registers an observer for changes at path or below it.
// Subscribing to "formatters.go" receives "formatters.go.cmd". Reloads
// reach every observer.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.entries = append(n.entries, entry{id: n.nextID, path: path, observer: observer})
	return &Subscription{id: n.nextID, notifier: n}
}

// Notify sends a change to all matching observers in subscription order.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	if change.Type != ChangeReload && change.Path != "" && change.Formatters == nil && !change.Global {
		if name, global := Scope(change.Path); global {
			change.Global = true
		} else {
			change.Formatters = []string{name}
		}
	}

	n.deliver(change)
}

// NotifySet is a convenience method for set changes.
func (n *Notifier) NotifySet(layer, path string, oldValue, newValue any) {
	n.Notify(Change{
		Type:     ChangeSet,
		Layer:    layer,
		Path:     path,
		OldValue: oldValue,
		NewValue: newValue,
	})
}

// NotifyDelete is a convenience method for delete changes.
func (n *Notifier) NotifyDelete(layer, path string, oldValue any) {
	n.Notify(Change{
		Type:     ChangeDelete,
		Layer:    layer,
		Path:     path,
		OldValue: oldValue,
	})
}

// NotifyReload reports that layer was re-read, with the formatter blocks
// that differ and whether top-level keys changed.
func (n *Notifier) NotifyReload(layer string, formatters []string, global bool) {
	names := append([]string(nil), formatters...)
	sort.Strings(names)
	n.Notify(Change{
		Type:       ChangeReload,
		Layer:      layer,
		Formatters: names,
		Global:     global,
	})
}

// Close stops delivery. Later changes are dropped. It is safe to call
// Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.entries {
		if e.id == id {
			n.entries = append(n.entries[:i:i], n.entries[i+1:]...)
			return
		}
	}
}

func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	var observers []Observer
	for _, e := range n.entries {
		if matches(e.path, change) {
			observers = append(observers, e.observer)
		}
	}
	n.mu.RUnlock()

	// Observers run outside the lock so they may subscribe or notify.
	for _, obs := range observers {
		obs(change)
	}
}

func matches(sub string, change Change) bool {
	if sub == "" || change.Path == "" {
		return true
	}
	return sub == change.Path || isParentPath(sub, change.Path)
}

// isParentPath checks if parent is a parent path of child.
// e.g., "formatters.go" is parent of "formatters.go.cmd".
func isParentPath(parent, child string) bool {
	return len(child) > len(parent) && child[:len(parent)] == parent && child[len(parent)] == '.'
}
