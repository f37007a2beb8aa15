// Package watcher reports changes to the local files a build read
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/utils"
)

// DefaultSettlingDelay is how long the watcher waits for changes to stop
// before reporting them.
const DefaultSettlingDelay = 200 * time.Millisecond

// Watcher watches a set of files through their parent directories, so that
// editors replacing a file by rename are still seen.
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     logger.Logger
	exclusions *utils.ExclusionMatcher
	settling   time.Duration

	files   map[string]bool
	dirs    map[string]int
	pending map[string]bool
	timer   *time.Timer
	mu      sync.Mutex
}

// New creates a watcher. Paths matched by exclusions are never reported.
func New(log logger.Logger, exclusions *utils.ExclusionMatcher) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Watcher{
		watcher:    fw,
		logger:     log.WithComponent("watcher"),
		exclusions: exclusions,
		settling:   DefaultSettlingDelay,
		files:      make(map[string]bool),
		dirs:       make(map[string]int),
		pending:    make(map[string]bool),
	}, nil
}

// SetSettlingDelay sets the delay for event settling
func (w *Watcher) SetSettlingDelay(delay time.Duration) {
	w.mu.Lock()
	w.settling = delay
	w.mu.Unlock()
}

// SetFiles replaces the watched file set. Excluded and relative paths are
// skipped, as are files whose directory cannot be watched; the first such
// failure is returned after the rest of the set is in place.
func (w *Watcher) SetFiles(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.exclusions != nil {
		paths = w.exclusions.FilterPaths(paths)
	}

	files := make(map[string]bool, len(paths))
	dirs := make(map[string]int)
	for _, path := range paths {
		if !filepath.IsAbs(path) {
			continue
		}
		path = filepath.Clean(path)
		files[path] = true
		dirs[filepath.Dir(path)]++
	}

	for dir := range w.dirs {
		if dirs[dir] == 0 {
			if err := w.watcher.Remove(dir); err != nil {
				w.logger.Debug("Failed to stop watching directory",
					logger.WithField("dir", dir),
					logger.WithField("error", err))
			}
		}
	}

	var firstErr error
	for dir := range dirs {
		if w.dirs[dir] > 0 {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			delete(dirs, dir)
			for path := range files {
				if filepath.Dir(path) == dir {
					delete(files, path)
				}
			}
			continue
		}
		w.logger.Debug("Watching directory", logger.WithField("dir", dir))
	}

	w.files = files
	w.dirs = dirs
	return firstErr
}

// Files returns the watched files, sorted
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Run processes events until ctx is done. onChange receives the changed
// files once no further change arrived within the settling delay. It is
// never called concurrently with itself.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.record(event) {
				w.resetTimer(fire)
			}

		case <-fire:
			if changed := w.drain(); len(changed) > 0 {
				w.logger.Debug("Files changed", logger.WithField("count", len(changed)))
				onChange(changed)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(fmt.Sprintf("Watcher error: %v", err))
		}
	}
}

// Close closes the watcher
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}

func (w *Watcher) record(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[path] || w.isExcluded(path) {
		return false
	}
	w.pending[path] = true
	return true
}

func (w *Watcher) resetTimer(fire chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settling, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]bool)
	sort.Strings(changed)
	return changed
}

func (w *Watcher) isExcluded(path string) bool {
	return w.exclusions != nil && w.exclusions.IsExcluded(path)
}
