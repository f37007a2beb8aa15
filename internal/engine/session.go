package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cherry/cherry/internal/watcher"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/notifier"
	"github.com/cherry/cherry/pkg/utils"
)

// Session builds a set of manifests and rebuilds each one when a local file
// it read changes. Build errors are reported and never end the session.
type Session struct {
	engine    *Engine
	logger    logger.Logger
	notifier  *notifier.BuildNotifier
	watcher   *watcher.Watcher
	manifests []string

	// files maps each manifest to the local files its last build read.
	files   map[string][]string
	buildMu sync.Mutex
	mu      sync.RWMutex
}

// NewSession creates a watch session for manifests
func NewSession(e *Engine, manifests []string, n *notifier.BuildNotifier, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	abs := make([]string, 0, len(manifests))
	patterns := utils.GetDefaultExclusions()
	for _, m := range manifests {
		path, err := filepath.Abs(m)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", m, err)
		}
		abs = append(abs, path)

		output, err := filepath.Abs(e.Config().ForManifest(path).Output)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output for %s: %w", m, err)
		}
		patterns = append(patterns, utils.OutputExclusions(output)...)
	}

	exclusions, err := utils.NewExclusionMatcher(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion pattern: %w", err)
	}
	w, err := watcher.New(log, exclusions)
	if err != nil {
		return nil, err
	}

	return &Session{
		engine:    e,
		logger:    log,
		notifier:  n,
		watcher:   w,
		manifests: abs,
		files:     make(map[string][]string),
	}, nil
}

// SetSettlingDelay sets how long changes must settle before a rebuild
func (s *Session) SetSettlingDelay(delay time.Duration) {
	s.watcher.SetSettlingDelay(delay)
}

// SetEngine replaces the engine used by later builds
func (s *Session) SetEngine(e *Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// Run builds every manifest once, then rebuilds on change until ctx is done
func (s *Session) Run(ctx context.Context) error {
	defer s.watcher.Close()

	s.build(ctx, s.manifests)
	s.logger.Info("Watching for changes...",
		logger.WithField("files", len(s.watcher.Files())))

	return s.watcher.Run(ctx, func(paths []string) {
		s.build(ctx, s.affected(paths))
	})
}

// Rebuild builds every manifest again
func (s *Session) Rebuild(ctx context.Context) {
	s.build(ctx, s.manifests)
}

// WatchedFiles returns the files the session currently watches
func (s *Session) WatchedFiles() []string {
	return s.watcher.Files()
}

func (s *Session) build(ctx context.Context, manifests []string) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.mu.RLock()
	e := s.engine
	s.mu.RUnlock()

	for _, m := range manifests {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		report, err := e.Build(ctx, m)
		s.track(m, report, err != nil)

		if err != nil {
			s.logger.Error(fmt.Sprintf("Build of %s failed", filepath.Base(m)),
				logger.WithField("error", err))
			s.notifier.NotifyBuildFailure(m, err)
			continue
		}
		s.notifier.NotifyBuildSuccess(m, report.Mode, time.Since(start))
	}

	if err := s.watcher.SetFiles(s.allFiles()); err != nil {
		s.logger.Warn("Failed to update watched files", logger.WithField("error", err))
	}
}

// track remembers what a build read. A failed build may have stopped early,
// so the files of the previous build are kept as well.
func (s *Session) track(manifest string, report *Report, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{manifest: true}
	files := []string{manifest}
	add := func(paths []string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
		}
	}

	add(report.LocalFiles())
	if failed {
		add(s.files[manifest])
	}
	s.files[manifest] = files
}

func (s *Session) allFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var all []string
	for _, files := range s.files {
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				all = append(all, f)
			}
		}
	}
	sort.Strings(all)
	return all
}

func (s *Session) affected(paths []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	changed := make(map[string]bool, len(paths))
	for _, p := range paths {
		changed[p] = true
	}

	var manifests []string
	for _, m := range s.manifests {
		for _, f := range s.files[m] {
			if changed[f] {
				manifests = append(manifests, m)
				break
			}
		}
	}
	return manifests
}
