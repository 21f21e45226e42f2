// Package watch records slide files into the history engine as they change
// on disk.
//
// Every file in a watched directory whose extension matches is a slide; its
// unit ID is the file name without the extension. Rapid writes to the same
// file are coalesced into one recorded version.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/slidevault/internal/engine/history"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrPathNotExist    = errors.New("path does not exist")
	ErrNotDirectory    = errors.New("path is not a directory")
)

// Defaults.
const (
	DefaultExtension = ".html"
	DefaultDebounce  = 100 * time.Millisecond
)

// Recorder receives slide content. *engine.Engine satisfies it.
type Recorder interface {
	RecordChange(unitID, content, label string) history.Version
}

// Event describes one recorded slide change.
type Event struct {
	// Path is the absolute path of the slide file.
	Path string

	// UnitID is the slide ID derived from the file name.
	UnitID string

	// Version is the version active after recording.
	Version history.Version

	// Timestamp is when the change was recorded.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	WatchedDirs int
	Recorded    int64
	Errors      int64
	LastError   error
}

// Config configures a Watcher.
type Config struct {
	// Extension selects slide files, including the dot.
	Extension string

	// Debounce is how long a file must be quiet before it is recorded.
	Debounce time.Duration

	// IgnoreHidden skips files whose name starts with a dot.
	IgnoreHidden bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Extension:    DefaultExtension,
		Debounce:     DefaultDebounce,
		IgnoreHidden: true,
	}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithExtension sets the slide file extension.
func WithExtension(ext string) Option {
	return func(w *Watcher) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" {
			w.config.Extension = ext
		}
	}
}

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.config.Debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnRecord registers a callback invoked after each recorded change.
func WithOnRecord(fn func(Event)) Option {
	return func(w *Watcher) {
		w.onRecord = fn
	}
}

// Watcher records slide files into a Recorder.
type Watcher struct {
	mu sync.Mutex

	watcher  *fsnotify.Watcher
	recorder Recorder
	config   Config
	logger   *slog.Logger
	onRecord func(Event)

	dirs    map[string]bool
	pending map[string]*time.Timer
	ready   chan string

	recorded  int64
	errCount  int64
	lastError error

	closed  bool
	closeCh chan struct{}
}

// New creates a watcher that records into recorder.
func New(recorder Recorder, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		recorder: recorder,
		config:   DefaultConfig(),
		logger:   slog.New(slog.DiscardHandler),
		dirs:     make(map[string]bool),
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// UnitID returns the slide ID for a file path.
func UnitID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Watch starts watching a directory of slide files.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	if w.dirs[absPath] {
		return ErrAlreadyWatching
	}

	if err := w.watcher.Add(absPath); err != nil {
		return err
	}
	w.dirs[absPath] = true
	w.logger.Debug("watching slides", "dir", absPath)
	return nil
}

// Scan records every slide file currently in dir, in name order.
// It returns the number of files recorded.
func (w *Watcher) Scan(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !w.matches(path) {
			continue
		}
		if w.record(path, "Loaded "+e.Name()) {
			n++
		}
	}
	return n, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.closeCh:
			return nil

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.recordError(err)

		case path := <-w.ready:
			w.record(path, "Edited "+filepath.Base(path))
		}
	}
}

// handleFSEvent schedules a recording for writes and creations of slide files.
func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	if !fsEvent.Op.Has(fsnotify.Write) && !fsEvent.Op.Has(fsnotify.Create) {
		return
	}
	if !w.matches(fsEvent.Name) {
		return
	}
	w.schedule(fsEvent.Name)
}

// schedule starts or restarts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.config.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.closeCh:
		}
	})
}

// matches reports whether path names a slide file.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if w.config.IgnoreHidden && strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), w.config.Extension)
}

// record reads path and records it. It reports whether the file was read.
func (w *Watcher) record(path, label string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// Removed or renamed before the debounce fired
		w.logger.Debug("skipping unreadable slide", "path", path, "error", err)
		return false
	}

	unitID := UnitID(path)
	v := w.recorder.RecordChange(unitID, string(data), label)
	atomic.AddInt64(&w.recorded, 1)
	w.logger.Info("slide recorded", "unit", unitID, "version", v.ID)

	if w.onRecord != nil {
		w.onRecord(Event{Path: path, UnitID: unitID, Version: v, Timestamp: time.Now()})
	}
	return true
}

// recordError records an error in stats.
func (w *Watcher) recordError(err error) {
	atomic.AddInt64(&w.errCount, 1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
	w.logger.Warn("watch error", "error", err)
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		WatchedDirs: len(w.dirs),
		Recorded:    atomic.LoadInt64(&w.recorded),
		Errors:      atomic.LoadInt64(&w.errCount),
		LastError:   w.lastError,
	}
}

// Close stops the watcher. Pending debounced changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
