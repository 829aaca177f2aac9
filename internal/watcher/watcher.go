// Package watcher notices writes to the external library's storage and triggers a sync once
// the library has been quiet for a while.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/factor8/TagDeck/internal/shared"
	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is the quiet period used when none is configured.
const DefaultQuiet = 5 * time.Second

// Options selects what to watch.
type Options struct {
	// Paths are candidate library locations. Ones that do not exist are skipped.
	Paths []string
	// Fallback is watched when none of Paths exists.
	Fallback string
	// Quiet is how long no relevant event may arrive before OnChange runs.
	Quiet time.Duration
}

// DefaultOptions returns the standard library locations under the user's home directory plus
// the configured extra paths.
func DefaultOptions(cfg shared.LibraryConfig) Options {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/Users/Shared"
	}
	return Options{
		Paths:    append(LibraryPaths(home), cfg.WatchPaths...),
		Fallback: filepath.Join(home, "Music", "Music"),
		Quiet:    cfg.Debounce(),
	}
}

// LibraryPaths lists where Music and iTunes keep their library below home.
func LibraryPaths(home string) []string {
	modern := filepath.Join(home, "Music", "Music")
	legacy := filepath.Join(home, "Music", "iTunes")
	return []string{
		filepath.Join(modern, "Music Library.musiclibrary"),
		filepath.Join(modern, "Library.xml"),
		filepath.Join(legacy, "iTunes Library.xml"),
		filepath.Join(legacy, "iTunes Music Library.xml"),
		filepath.Join(home, "Music", "Music 1", "Music Library.musiclibrary"),
	}
}

// Relevant reports whether a change to name can mean the library changed.
// Temporary and lock files are noise.
func Relevant(name string) bool {
	return !strings.HasSuffix(name, ".lock") && !strings.Contains(name, ".tmp")
}

// Watcher calls OnChange once per burst of relevant file system events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce func(func())
	onChange func()
	logger   *log.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	watched  []string
	// trees are directories whose every entry is watched.
	trees map[string]bool
	// files maps a directory watched for single files to the names that count.
	files map[string]map[string]bool
}

// New creates a Watcher. It must be started with [Watcher.Start].
func New(quiet time.Duration, onChange func(), logger *log.Logger) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  w,
		debounce: debounce.New(quiet),
		onChange: onChange,
		logger:   shared.WithLogger(logger, "component", "watcher"),
		done:     make(chan struct{}),
		trees:    make(map[string]bool),
		files:    make(map[string]map[string]bool),
	}, nil
}

// Start watches every existing path in opts, or the fallback when none exists.
// Directories are watched with all their subdirectories. A plain file is watched through its
// parent directory so replacing it by rename keeps the watch.
func (w *Watcher) Start(opts Options) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	for _, path := range opts.Paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := w.addTree(path); err != nil {
			w.logger.Warn("failed to watch path", "path", path, "error", err)
			continue
		}
		w.watched = append(w.watched, path)
	}

	if len(w.watched) == 0 && opts.Fallback != "" {
		w.logger.Warn("no library files found at standard locations, watching fallback", "path", opts.Fallback)
		if err := w.addTree(opts.Fallback); err == nil {
			w.watched = append(w.watched, opts.Fallback)
		}
	}

	if len(w.watched) == 0 {
		return fmt.Errorf("%w: no library location to watch", shared.ErrMissingConfig)
	}

	for _, path := range w.watched {
		w.logger.Info("watching", "path", path)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop stops watching and waits for the event loop to exit. A pending callback is dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

// Watched returns the paths passed to the OS watcher by Start.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.watched...)
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.addFile(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.trees[filepath.Clean(path)] = true
		return nil
	})
}

func (w *Watcher) addFile(path string) error {
	path = filepath.Clean(path)
	dir, name := filepath.Dir(path), filepath.Base(path)
	if w.files[dir] == nil {
		if !w.trees[dir] {
			if err := w.watcher.Add(dir); err != nil {
				return err
			}
		}
		w.files[dir] = make(map[string]bool)
	}
	w.files[dir][name] = true
	return nil
}

// wanted reports whether name lies in a watched tree or is one of the watched files.
func (w *Watcher) wanted(name string) bool {
	name = filepath.Clean(name)
	dir := filepath.Dir(name)
	if w.trees[dir] || w.trees[name] {
		return true
	}
	return w.files[dir][filepath.Base(name)]
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if !Relevant(event.Name) || !w.wanted(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.logger.Debug("library changed", "path", event.Name, "op", event.Op.String())
	w.debounce(w.fire)
}

func (w *Watcher) fire() {
	if !w.IsRunning() {
		return
	}
	w.logger.Info("library quiet, running change callback")
	w.onChange()
}
