package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/keyfmt/internal/config/layer"
	"github.com/dshills/keyfmt/internal/config/loader"
	"github.com/dshills/keyfmt/internal/config/notify"
	"github.com/dshills/keyfmt/internal/config/schema"
	"github.com/dshills/keyfmt/internal/config/watcher"
)

// AppName names the settings directory and files.
const AppName = "keyfmt"

// ProjectExt is the extension of project documents.
const ProjectExt = ".keyfmt-project"

// globalFiles are tried in order under the config directory.
var globalFiles = []string{"keyfmt.json", "keyfmt.toml", "keyfmt.yaml", "keyfmt.yml"}

// projectRoot is the key of the formatter block inside a project document.
var projectRoot = []string{"settings", "format"}

// maxProblemsPerFile caps the schema errors reported for a single file.
const maxProblemsPerFile = 20

// Store owns the persisted settings layers: the built-in defaults, the
// global settings file and any open project documents. It reloads files
// that change on disk and reports every change through its notifier.
type Store struct {
	mu sync.RWMutex

	configDir string
	fs        loader.FileSystem
	logger    *zap.Logger

	enableWatcher bool
	debounce      time.Duration
	strictSchema  bool

	defaults *layer.Layer
	global   *layer.File
	projects map[string]*layer.File

	notifier  *notify.Notifier
	watcher   *watcher.Watcher
	validator *schema.Validator
}

// Option configures a Store.
type Option func(*Store)

// WithConfigDir sets the directory holding the global settings file.
func WithConfigDir(dir string) Option {
	return func(s *Store) {
		s.configDir = dir
	}
}

// WithFS sets the file system settings are read from and written to.
func WithFS(fsys loader.FileSystem) Option {
	return func(s *Store) {
		s.fs = fsys
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWatcher enables or disables live reload of settings files.
func WithWatcher(enable bool) Option {
	return func(s *Store) {
		s.enableWatcher = enable
	}
}

// WithDebounce sets how long file events are coalesced before a reload.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		s.debounce = d
	}
}

// WithStrictSchema makes schema validation report settings the schema
// does not declare.
func WithStrictSchema(strict bool) Option {
	return func(s *Store) {
		s.strictSchema = strict
	}
}

// Open loads the global settings file from the config directory. A
// missing file is not an error; it is created on the first write.
func Open(opts ...Option) (*Store, error) {
	s := &Store{
		fs:            loader.DefaultFS(),
		logger:        zap.NewNop(),
		enableWatcher: true,
		debounce:      100 * time.Millisecond,
		defaults:      Defaults(),
		projects:      make(map[string]*layer.File),
		notifier:      notify.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.configDir == "" {
		s.configDir = defaultUserConfigDir()
	}

	if sch, err := schema.LoadEmbedded(); err == nil {
		s.validator = schema.NewValidator(sch).
			WithStrictMode(s.strictSchema).
			WithMaxErrors(maxProblemsPerFile)
	} else {
		s.logger.Warn("settings schema unavailable", zap.Error(err))
	}

	if s.enableWatcher {
		s.watcher = watcher.New(
			watcher.WithDebounce(s.debounce),
			watcher.WithLogger(s.logger.Named("watcher")),
		)
	}

	path := s.globalPath()
	global, err := layer.OpenFile("global", layer.SourceGlobal, s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("loading global settings: %w", err)
	}
	global.OnWrite(s.onWrite)
	s.global = global

	if s.watcher != nil {
		if err := s.watcher.Watch(path); err != nil {
			s.logger.Warn("cannot watch settings file", zap.String("path", path), zap.Error(err))
		}
	}

	s.logger.Debug("global settings loaded",
		zap.String("path", path),
		zap.Bool("exists", global.Exists()),
		zap.Int("formatters", len(global.Formatters())))
	s.logProblems(global)

	return s, nil
}

// ConfigDir returns the directory of the global settings file.
func (s *Store) ConfigDir() string {
	return s.configDir
}

// Defaults returns the built-in layer.
func (s *Store) Defaults() *layer.Layer {
	return s.defaults
}

// Global returns the global settings layer.
func (s *Store) Global() *layer.File {
	return s.global
}

// Subscribe registers an observer for all settings changes.
func (s *Store) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// OpenProject loads a project document. The formatter block of a
// *.keyfmt-project file lives under "settings.format"; any other
// supported file is used whole. Opening the same path twice returns the
// same layer.
func (s *Store) OpenProject(path string) (*layer.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.projects[abs]; ok {
		return f, nil
	}

	var root []string
	if strings.EqualFold(filepath.Ext(abs), ProjectExt) {
		root = projectRoot
	}

	f, err := layer.OpenFile(abs, layer.SourceProject, s.fs, abs, root...)
	if err != nil {
		return nil, fmt.Errorf("loading project settings: %w", err)
	}
	f.OnWrite(s.onWrite)
	s.projects[abs] = f

	if s.watcher != nil {
		if err := s.watcher.Watch(abs); err != nil {
			s.logger.Warn("cannot watch project file", zap.String("path", abs), zap.Error(err))
		}
	}

	s.logger.Debug("project settings loaded",
		zap.String("path", abs),
		zap.Int("formatters", len(f.Formatters())))
	s.logProblems(f)

	return f, nil
}

// Project returns an open project layer.
func (s *Store) Project(path string) (*layer.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.projects[abs]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotOpen, abs)
	}
	return f, nil
}

// CloseProject forgets a project document and stops watching it.
func (s *Store) CloseProject(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	s.mu.Lock()
	_, ok := s.projects[abs]
	delete(s.projects, abs)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotOpen, abs)
	}
	if s.watcher != nil {
		if err := s.watcher.Unwatch(abs); err != nil {
			return err
		}
	}
	return nil
}

// Projects returns the paths of the open project documents, sorted.
func (s *Store) Projects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.projects))
	for p := range s.projects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Start begins live reload. Every reload triggered by the watcher is
// handed to dispatch, so it runs wherever the caller serializes settings
// access. A nil dispatch reloads on the watcher goroutine.
func (s *Store) Start(dispatch func(func())) error {
	if s.watcher == nil {
		return nil
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}

	s.watcher.OnChange(func(ev watcher.Event) {
		dispatch(func() {
			if err := s.Reload(ev.Path); err != nil {
				s.logger.Warn("settings reload failed",
					zap.String("path", ev.Path),
					zap.Stringer("op", ev.Op),
					zap.Error(err))
			}
		})
	})
	return s.watcher.Start()
}

// Reload re-reads the settings file at path and notifies subscribers of
// the formatter blocks that changed. A file that fails to parse keeps
// its previous values.
func (s *Store) Reload(path string) error {
	f := s.fileFor(path)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrProjectNotOpen, path)
	}

	changed, global, err := f.Reload()
	if err != nil {
		return err
	}
	if len(changed) == 0 && !global {
		return nil
	}

	s.logger.Info("settings reloaded",
		zap.String("path", f.Path()),
		zap.Strings("formatters", changed),
		zap.Bool("global", global))
	s.logProblems(f)
	s.notifier.NotifyReload(f.Path(), changed, global)
	return nil
}

// Problems validates the global file and every open project against the
// settings schema.
func (s *Store) Problems() error {
	if s.validator == nil {
		return nil
	}

	var err error
	for _, f := range s.files() {
		if verr := s.validator.Validate(f.Data()); verr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", f.Path(), verr))
		}
	}
	return err
}

// Close stops the watcher and the notifier.
func (s *Store) Close() error {
	var err error
	if s.watcher != nil && s.watcher.IsRunning() {
		err = multierr.Append(err, s.watcher.Stop())
	}
	s.notifier.Close()
	return err
}

func (s *Store) onWrite(f *layer.File, key string, oldValue, newValue any, deleted bool) {
	if deleted {
		s.notifier.NotifyDelete(f.Path(), key, oldValue)
		return
	}
	s.notifier.NotifySet(f.Path(), key, oldValue, newValue)
}

func (s *Store) logProblems(f *layer.File) {
	if s.validator == nil {
		return
	}
	err := s.validator.Validate(f.Data())
	if err == nil {
		return
	}

	var verrs *schema.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs.Errors {
			s.logger.Warn("invalid setting",
				zap.String("file", f.Path()),
				zap.String("key", e.Path),
				zap.String("problem", e.Message))
		}
		return
	}
	s.logger.Warn("invalid settings", zap.String("file", f.Path()), zap.Error(err))
}

func (s *Store) fileFor(path string) *layer.File {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if g := s.global.Path(); g == path || g == abs {
		return s.global
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects[abs]
}

func (s *Store) files() []*layer.File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := []*layer.File{s.global}
	paths := make([]string, 0, len(s.projects))
	for p := range s.projects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		files = append(files, s.projects[p])
	}
	return files
}

// globalPath returns the first existing settings file in the config
// directory, or keyfmt.json there when none exists.
func (s *Store) globalPath() string {
	for _, name := range globalFiles {
		p := filepath.Join(s.configDir, name)
		if _, err := s.fs.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(s.configDir, globalFiles[0])
}

// defaultUserConfigDir returns the default user configuration directory.
func defaultUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}
