package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/keyfmt/internal/config"
	"github.com/dshills/keyfmt/internal/config/layer"
	"github.com/dshills/keyfmt/internal/config/notify"
	"github.com/dshills/keyfmt/internal/invoke"
	"github.com/dshills/keyfmt/internal/registry"
)

// Options configures the application.
type Options struct {
	// Store provides the settings layers. Required.
	Store *config.Store

	// Runner executes formatters. Defaults to a runner with its own
	// supervisor that reports process exits to Metrics.
	Runner *invoke.Runner

	// MaxProcesses caps concurrent formatter processes of the default
	// runner. Zero means no limit.
	MaxProcesses int

	// Surface shows status messages, panels and dialogs. Defaults to a
	// Console on stderr.
	Surface Surface

	// Console receives failures of formatters whose error_style is
	// "console". Defaults to stderr.
	Console io.Writer

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Application ties the settings store, the registry and the runner
// together. All registry access happens on the loop goroutine.
type Application struct {
	store    *config.Store
	registry *registry.Registry
	runner   *invoke.Runner
	loop     *Loop
	surface  Surface
	logger   *zap.Logger
	metrics  *Metrics

	consoleMu    sync.Mutex
	console      io.Writer
	consoleColor *color.Color

	sub    *notify.Subscription
	unhook func()

	running atomic.Bool
	async   sync.WaitGroup

	// Loop-owned.
	windowProjects map[string]string
	projectRefs    map[string]int
}

// New creates an application. Call Start before use.
func New(opts Options) (*Application, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Application{
		store:          opts.Store,
		runner:         opts.Runner,
		surface:        opts.Surface,
		console:        opts.Console,
		consoleColor:   color.New(color.FgRed),
		logger:         logger,
		metrics:        NewMetrics(),
		loop:           NewLoop(logger.Named("loop")),
		windowProjects: make(map[string]string),
		projectRefs:    make(map[string]int),
	}
	if a.runner == nil {
		sup := invoke.NewSupervisor(
			invoke.WithMaxProcesses(opts.MaxProcesses),
			invoke.WithProcessExitCallback(a.onProcessExit),
			invoke.WithSupervisorLogger(logger.Named("invoke")),
		)
		a.runner = invoke.NewRunner(
			invoke.WithSupervisor(sup),
			invoke.WithLogger(logger.Named("invoke")),
		)
	}
	if a.console == nil {
		a.console = os.Stderr
	}
	if a.surface == nil {
		a.surface = NewConsole(os.Stderr)
	}

	a.registry = registry.New(opts.Store.Global(),
		registry.WithDefaults(opts.Store.Defaults()),
		registry.WithLogger(logger.Named("registry")))
	a.unhook = a.registry.Subscribe(a.onRegistryChange)

	return a, nil
}

// Start runs the loop and begins following settings changes.
func (a *Application) Start() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := a.loop.Start(); err != nil {
		a.running.Store(false)
		return err
	}

	a.sub = a.store.Subscribe(a.onSettingsChange)
	if err := a.store.Start(a.loop.Dispatch); err != nil {
		a.logger.Warn("settings will not reload automatically", zap.Error(err))
	}
	return nil
}

// Shutdown waits for asynchronous requests, stops formatter processes
// that outlive timeout and stops the loop. The store stays open; its
// owner closes it.
func (a *Application) Shutdown(timeout time.Duration) error {
	if !a.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	a.sub.Unsubscribe()

	waited := make(chan struct{})
	go func() {
		a.async.Wait()
		close(waited)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waited:
	case <-timer.C:
		a.logger.Warn("asynchronous format requests still running at shutdown")
	}

	a.runner.Supervisor().Shutdown(timeout)
	<-waited

	err := a.loop.Call(context.Background(), func() error {
		a.unhook()
		return nil
	})
	a.loop.Stop()

	snap := a.metrics.Snapshot()
	a.logger.Debug("format metrics",
		zap.Uint64("requests", snap.Requests),
		zap.Uint64("runs", snap.Runs),
		zap.Uint64("failures", snap.Failures),
		zap.Uint64("timeouts", snap.Timeouts),
		zap.Uint64("killed", snap.Killed),
		zap.Duration("run_avg", snap.RunAvg))

	return err
}

// IsRunning reports whether Start has been called without Shutdown.
func (a *Application) IsRunning() bool {
	return a.running.Load()
}

// Store returns the settings store.
func (a *Application) Store() *config.Store { return a.store }

// Metrics returns the format metrics.
func (a *Application) Metrics() *Metrics { return a.metrics }

// Loop returns the event loop. Registry calls made through Registry must
// run on it.
func (a *Application) Loop() *Loop { return a.loop }

// Registry returns the formatter registry. It is not safe for use off the
// loop.
func (a *Application) Registry() *registry.Registry { return a.registry }

// OpenWindow registers a window with the project document at
// projectPath, or without a project when projectPath is empty.
func (a *Application) OpenWindow(ctx context.Context, projectPath string) (*registry.Window, error) {
	var w *registry.Window
	err := a.loop.Call(ctx, func() error {
		project, path, err := a.retainProject(projectPath)
		if err != nil {
			return err
		}
		w = registry.NewWindow(uuid.NewString(), project)
		a.windowProjects[w.ID()] = path
		a.registry.Register(w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// SetProject switches w to the project document at projectPath. An empty
// path removes the project.
func (a *Application) SetProject(ctx context.Context, w *registry.Window, projectPath string) error {
	return a.loop.Call(ctx, func() error {
		project, path, err := a.retainProject(projectPath)
		if err != nil {
			return err
		}
		a.releaseProject(a.windowProjects[w.ID()])
		a.windowProjects[w.ID()] = path
		w.SetProject(project)
		// Documents of w derive their project from it.
		a.registry.UpdateAll()
		return nil
	})
}

// CloseWindow forgets w and every document in it.
func (a *Application) CloseWindow(ctx context.Context, w *registry.Window) error {
	return a.loop.Call(ctx, func() error {
		w.Close()
		a.registry.Unregister(w)
		a.releaseProject(a.windowProjects[w.ID()])
		delete(a.windowProjects, w.ID())
		a.registry.UpdateAll()
		return nil
	})
}

// OpenDocument registers a document at path in window w. w may be nil
// for documents outside any window.
func (a *Application) OpenDocument(ctx context.Context, w *registry.Window, path string) (*registry.Document, error) {
	var doc *registry.Document
	err := a.loop.Call(ctx, func() error {
		doc = registry.NewDocument(uuid.NewString(), path, w)
		a.registry.Register(doc)
		if !a.registry.Registered(doc) {
			return fmt.Errorf("%w: window is closed", ErrNoContext)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// CloseDocument forgets doc.
func (a *Application) CloseDocument(ctx context.Context, doc *registry.Document) error {
	return a.loop.Call(ctx, func() error {
		doc.Close()
		a.registry.Unregister(doc)
		return nil
	})
}

// Override sets a transient document setting, such as the tab size the
// editor uses for the buffer. A nil value removes it.
func (a *Application) Override(ctx context.Context, doc *registry.Document, key string, value any) error {
	return a.loop.Call(ctx, func() error {
		var err error
		if value == nil {
			err = doc.Layer().ClearOverride(key)
		} else {
			err = doc.Layer().Override(key, value)
		}
		if err != nil {
			return err
		}
		a.registry.Update(doc)
		return nil
	})
}

// Formatters lists the formatter names declared for c. A nil c lists the
// global ones.
func (a *Application) Formatters(ctx context.Context, c registry.Context) ([]string, error) {
	var names []string
	err := a.loop.Call(ctx, func() error {
		names = a.registry.Formatters(c)
		return nil
	})
	return names, err
}

func (a *Application) retainProject(path string) (layer.Settings, string, error) {
	if path == "" {
		return nil, "", nil
	}
	f, err := a.store.OpenProject(path)
	if err != nil {
		return nil, "", err
	}
	a.projectRefs[f.Path()]++
	return f, f.Path(), nil
}

func (a *Application) releaseProject(path string) {
	if path == "" {
		return
	}
	a.projectRefs[path]--
	if a.projectRefs[path] > 0 {
		return
	}
	delete(a.projectRefs, path)
	if err := a.store.CloseProject(path); err != nil {
		a.logger.Debug("closing project", zap.String("path", path), zap.Error(err))
	}
}

func (a *Application) onSettingsChange(c notify.Change) {
	a.loop.Dispatch(func() {
		a.logger.Debug("settings changed",
			zap.Stringer("type", c.Type),
			zap.String("layer", c.Layer),
			zap.String("key", c.Path),
			zap.Strings("formatters", c.Formatters))
		a.registry.UpdateAll()
	})
}

func (a *Application) onProcessExit(p *invoke.Process) {
	a.metrics.RecordProcessExit(p.State() == invoke.StateKilled)
}

func (a *Application) onRegistryChange(c registry.Context, names []string) {
	if names == nil {
		a.logger.Debug("context dropped", zap.String("context", c.ID()))
		return
	}
	a.logger.Debug("formatters updated",
		zap.String("context", c.ID()),
		zap.Strings("formatters", names))
}
