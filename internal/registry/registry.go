// Package registry resolves which formatter applies to a scope.
//
// A Registry tracks windows and documents (contexts). For each context it
// keeps the set of declared formatters, derived from the context's
// settings layers, and a lookup cache keyed by primary scope. Update
// rebuilds the set and drops the cache.
//
// A Registry is not safe for concurrent use. The host owns one and calls
// it from a single goroutine; settings changes must be marshaled onto
// that goroutine before calling Update.
package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/config/layer"
	"github.com/dshills/keyfmt/internal/scope"
)

var (
	// ErrNoMatch means no formatter selector matches the scope.
	ErrNoMatch = errors.New("no formatter matches scope")

	// ErrDisabled means the matching formatter has enabled=false.
	ErrDisabled = errors.New("formatter is disabled")

	// ErrUnknownContext means the context is not registered or no longer valid.
	ErrUnknownContext = errors.New("unknown context")
)

// ChangeHook observes registry rebuilds. names is the declared formatter
// set of the rebuilt context; it is nil when the context was dropped.
type ChangeHook func(ctx Context, names []string)

// Option configures a Registry.
type Option func(*Registry)

// WithDefaults sets the layer consulted after every other layer.
func WithDefaults(defaults layer.Settings) Option {
	return func(r *Registry) {
		r.defaults = defaults
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry resolves formatters for registered contexts.
type Registry struct {
	global   layer.Settings
	defaults layer.Settings
	logger   *zap.Logger

	sessions map[string]*session
	order    []string

	hooks    map[int]ChangeHook
	hookSeq  []int
	nextHook int
}

// session is the tracked state of one context.
type session struct {
	ctx Context

	formatters map[string]*Formatter
	names      []string

	// candidates and selectors are parallel: the formatters that have a
	// usable selector and cmd, in declaration order.
	candidates []*Formatter
	selectors  []string

	cache map[string]*Formatter
}

// New creates a registry over the global settings layer.
func New(global layer.Settings, opts ...Option) *Registry {
	r := &Registry{
		global:   global,
		defaults: config.Defaults(),
		logger:   zap.NewNop(),
		sessions: make(map[string]*session),
		hooks:    make(map[int]ChangeHook),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register starts tracking ctx and builds its formatter set. Registering
// a tracked or invalid context does nothing.
func (r *Registry) Register(ctx Context) {
	if ctx == nil || !ctx.Valid() {
		return
	}
	id := ctx.ID()
	if _, ok := r.sessions[id]; ok {
		return
	}

	s := &session{ctx: ctx, formatters: make(map[string]*Formatter)}
	r.sessions[id] = s
	r.order = append(r.order, id)
	r.rebuild(s)
}

// Unregister stops tracking ctx and drops its cache.
func (r *Registry) Unregister(ctx Context) {
	if ctx == nil {
		return
	}
	r.drop(ctx.ID())
}

// Registered reports whether ctx is tracked.
func (r *Registry) Registered(ctx Context) bool {
	return r.session(ctx) != nil
}

// Update rebuilds the formatter set of ctx and clears its cache. A nil
// ctx updates every context. Contexts that became invalid are dropped.
func (r *Registry) Update(ctx Context) {
	if ctx == nil {
		r.UpdateAll()
		return
	}

	s, ok := r.sessions[ctx.ID()]
	if !ok {
		return
	}
	if !s.ctx.Valid() {
		r.drop(ctx.ID())
		return
	}
	r.rebuild(s)
}

// UpdateAll rebuilds every tracked context in registration order.
func (r *Registry) UpdateAll() {
	ids := append([]string(nil), r.order...)
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			r.Update(s.ctx)
		}
	}
}

// Lookup returns the formatter whose selector best matches scope, or nil.
// Results for primary scopes are cached per context, including misses.
// Lookup ignores the enabled setting; see Resolve.
func (r *Registry) Lookup(ctx Context, sc string) *Formatter {
	s := r.session(ctx)
	if s == nil {
		return nil
	}

	cacheable := !scope.IsComposite(sc)
	if cacheable {
		if f, ok := s.cache[sc]; ok {
			return f
		}
	}

	var result *Formatter
	if idx, _ := scope.Best(sc, s.selectors); idx >= 0 {
		result = s.candidates[idx]
	}

	if cacheable {
		if s.cache == nil {
			s.cache = make(map[string]*Formatter)
		}
		s.cache[sc] = result
	}
	return result
}

// Resolve is Lookup that reports why no usable formatter exists. It
// returns ErrNoMatch when nothing matches and an error wrapping
// ErrDisabled when the match is turned off.
func (r *Registry) Resolve(ctx Context, sc string) (*Formatter, error) {
	f := r.Lookup(ctx, sc)
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, sc)
	}
	if !f.Enabled() {
		return f, fmt.Errorf("%w: %s", ErrDisabled, f.Name())
	}
	return f, nil
}

// Formatter returns the formatter named name as declared for ctx, or nil.
func (r *Registry) Formatter(ctx Context, name string) *Formatter {
	s := r.session(ctx)
	if s == nil {
		return nil
	}
	return s.formatters[name]
}

// Formatters returns the formatter names declared for ctx, in declaration
// order. A nil ctx lists the names of the global layer.
func (r *Registry) Formatters(ctx Context) []string {
	if ctx == nil {
		return r.view(nil, "").Formatters()
	}
	s := r.session(ctx)
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Settings returns the effective settings of the named formatter for
// ctx, whether or not it is declared. An empty name gives the top-level
// settings. A nil ctx gives the view outside any project or document.
// Unknown or invalid contexts yield nil.
func (r *Registry) Settings(ctx Context, name string) layer.Settings {
	if ctx == nil {
		return r.view(nil, name)
	}
	if r.session(ctx) == nil {
		return nil
	}
	return r.view(ctx, name)
}

// Subscribe registers a hook called after every rebuild. The returned
// function removes it.
func (r *Registry) Subscribe(hook ChangeHook) func() {
	id := r.nextHook
	r.nextHook++
	r.hooks[id] = hook
	r.hookSeq = append(r.hookSeq, id)

	return func() {
		delete(r.hooks, id)
		for i, h := range r.hookSeq {
			if h == id {
				r.hookSeq = append(r.hookSeq[:i], r.hookSeq[i+1:]...)
				break
			}
		}
	}
}

func (r *Registry) session(ctx Context) *session {
	if ctx == nil || !ctx.Valid() {
		return nil
	}
	return r.sessions[ctx.ID()]
}

func (r *Registry) drop(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.emit(s.ctx, nil)
}

// rebuild recomputes the declared formatter set of s. Surviving
// formatters keep their identity with a fresh settings view.
func (r *Registry) rebuild(s *session) {
	names := r.view(s.ctx, "").Formatters()

	next := make(map[string]*Formatter, len(names))
	s.candidates = s.candidates[:0]
	s.selectors = s.selectors[:0]

	for _, name := range names {
		view := r.view(s.ctx, name)
		f, ok := s.formatters[name]
		if ok {
			f.reset(view)
		} else {
			f = newFormatter(name, view)
		}
		next[name] = f

		sel, err := r.definition(s.ctx, name)
		if err != nil {
			r.logger.Warn("formatter excluded from matching",
				zap.String("context", s.ctx.ID()),
				zap.Error(err))
			continue
		}
		s.candidates = append(s.candidates, f)
		s.selectors = append(s.selectors, sel)
	}

	s.formatters = next
	s.names = names
	s.cache = nil

	r.logger.Debug("formatters rebuilt",
		zap.String("context", s.ctx.ID()),
		zap.Strings("formatters", names),
		zap.Int("eligible", len(s.candidates)))
	r.emit(s.ctx, names)
}

// definition checks that the formatter blocks of ctx give name a usable
// selector and cmd, and returns the selector. Top-level keys never make
// a formatter eligible.
func (r *Registry) definition(ctx Context, name string) (string, error) {
	var blocks []layer.Settings
	for _, l := range r.layers(ctx) {
		blocks = append(blocks, l.Formatter(name))
	}
	def := layer.NewMerged(name, blocks...)

	sel, err := config.Selector(def)
	if err != nil {
		return "", &config.ConfigurationError{Formatter: name, Key: config.KeySelector, Err: err}
	}
	if _, err := config.Command(def); err != nil {
		return "", &config.ConfigurationError{Formatter: name, Key: config.KeyCommand, Err: err}
	}
	return sel, nil
}

// view builds the effective settings of name for ctx:
// document block, document, project block, project, global block, global,
// defaults. An empty name skips the formatter blocks.
func (r *Registry) view(ctx Context, name string) *layer.Merged {
	var stack []layer.Settings
	for _, l := range r.layers(ctx) {
		if name != "" {
			stack = append(stack, l.Formatter(name))
		}
		stack = append(stack, l)
	}
	if r.defaults != nil {
		stack = append(stack, r.defaults)
	}

	viewName := name
	if viewName == "" {
		viewName = "settings"
	}
	return layer.NewMerged(viewName, stack...)
}

// layers returns the non-nil settings layers of ctx, most specific first.
func (r *Registry) layers(ctx Context) []layer.Settings {
	var out []layer.Settings
	if ctx != nil {
		if doc := ctx.Overrides(); doc != nil {
			out = append(out, doc)
		}
		if proj := ctx.Project(); proj != nil {
			out = append(out, proj)
		}
	}
	if r.global != nil {
		out = append(out, r.global)
	}
	return out
}

func (r *Registry) emit(ctx Context, names []string) {
	for _, id := range append([]int(nil), r.hookSeq...) {
		if hook, ok := r.hooks[id]; ok {
			hook(ctx, names)
		}
	}
}
