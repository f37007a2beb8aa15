// Package engine provides the build orchestration for cherry.
// The implementation is split across multiple files:
//   - engine.go: per-manifest builds and mode-switch cleanup
//   - orchestrator.go: the worklist dispatch loop
//   - session.go: rebuilding on change for cherry watch
//   - safegroup.go: panic-safe goroutine groups
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cherry/cherry/internal/registry"
	"github.com/cherry/cherry/internal/state"
	"github.com/cherry/cherry/pkg/config"
	pcontext "github.com/cherry/cherry/pkg/context"
	"github.com/cherry/cherry/pkg/handlers"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/process"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
	"github.com/cherry/cherry/pkg/utils"
)

// Report summarizes one run of the dispatch loop
type Report struct {
	BuildID  string
	Manifest string
	Output   string
	Mode     types.BuildMode
	// Origins lists the origin of every dispatched source, in dispatch order.
	Origins  []string
	Duration time.Duration
}

// LocalFiles returns the dispatched origins that are files on disk
func (r *Report) LocalFiles() []string {
	if r == nil {
		return nil
	}
	var files []string
	for _, origin := range r.Origins {
		if !source.IsURL(origin) {
			files = append(files, origin)
		}
	}
	return files
}

// HandlerFactory creates the handlers for one build
type HandlerFactory func(cfg config.BuildConfig, deps handlers.Deps) []handlers.Handler

// Option configures an Engine
type Option func(*Engine)

// WithRunner sets the runner used for external tools
func WithRunner(r process.Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithFetcher sets the fetcher used for remote sources
func WithFetcher(f source.Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithStore sets the build record store
func WithStore(s *state.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithHandlers replaces the default handler set
func WithHandlers(f HandlerFactory) Option {
	return func(e *Engine) { e.newHandlers = f }
}

// Engine builds manifests with a fixed base configuration
type Engine struct {
	config      config.BuildConfig
	logger      logger.Logger
	runner      process.Runner
	fetcher     source.Fetcher
	store       *state.Store
	newHandlers HandlerFactory
}

// New creates a new engine
func New(cfg config.BuildConfig, log logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}
	e := &Engine{
		config:      cfg,
		logger:      log,
		newHandlers: handlers.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = state.NewStore(log)
	}
	return e
}

// Config returns the base configuration
func (e *Engine) Config() config.BuildConfig {
	return e.config
}

// Build builds one manifest. When the last recorded build of the same output
// used the other of dev and production mode, its artifacts are cleaned first.
func (e *Engine) Build(ctx context.Context, manifest string) (*Report, error) {
	abs, err := filepath.Abs(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", manifest, err)
	}
	cfg := e.config.ForManifest(abs)
	if cfg.Output, err = filepath.Abs(cfg.Output); err != nil {
		return nil, fmt.Errorf("failed to resolve output %s: %w", cfg.Output, err)
	}

	ctx = pcontext.EnrichContext(pcontext.WithManifest(ctx, abs))
	log := logger.WithContext(ctx, e.logger)
	mode := cfg.Mode()

	if mode != types.BuildModeClean {
		if err := e.cleanStale(ctx, cfg, abs); err != nil {
			return nil, err
		}
	}

	log.Info(fmt.Sprintf("Building %s", filepath.Base(abs)),
		logger.WithField("mode", mode),
		logger.WithField("output", cfg.Output))

	report, runErr := e.run(ctx, cfg, abs)

	if cfg.Cache.Enabled && cfg.Cache.Clean {
		if err := utils.RemoveDirectory(cfg.Cache.Dir); err != nil {
			log.Warn("Failed to remove cache directory",
				logger.WithField("dir", cfg.Cache.Dir),
				logger.WithField("error", err))
		}
	}

	e.record(ctx, cfg, abs, report, runErr)
	if runErr != nil {
		return report, runErr
	}

	log.Success(fmt.Sprintf("Built %s in %s", filepath.Base(abs), report.Duration.Round(time.Millisecond)))
	return report, nil
}

// run dispatches the manifest with a fresh handler set for cfg
func (e *Engine) run(ctx context.Context, cfg config.BuildConfig, manifest string) (*Report, error) {
	hs := e.newHandlers(cfg, handlers.Deps{
		Logger:  e.logger,
		Runner:  e.runner,
		Fetcher: e.fetcher,
	})
	table, err := registry.New(hs...)
	if err != nil {
		return nil, err
	}

	report, err := Run(ctx, e.logger, table, source.NewFile(manifest))
	if report != nil {
		report.Manifest = manifest
		report.Output = cfg.Output
		report.Mode = cfg.Mode()
	}
	return report, err
}

func (e *Engine) cleanStale(ctx context.Context, cfg config.BuildConfig, manifest string) error {
	log := logger.WithContext(ctx, e.logger)

	prev, err := e.store.Load(cfg.Output)
	if err != nil {
		log.Warn("Ignoring build record", logger.WithField("error", err))
		return nil
	}
	if prev == nil || prev.Mode == cfg.Mode() || prev.Mode == types.BuildModeClean {
		return nil
	}

	log.Info("Build mode changed, cleaning previous artifacts",
		logger.WithField("from", prev.Mode),
		logger.WithField("to", cfg.Mode()))

	clean := cfg
	clean.Clean = true
	cleanCtx := pcontext.WithOperation(ctx, "clean")
	if _, err := e.run(cleanCtx, clean, manifest); err != nil {
		return fmt.Errorf("failed to clean %s artifacts: %w", prev.Mode, err)
	}
	return nil
}

func (e *Engine) record(ctx context.Context, cfg config.BuildConfig, manifest string, report *Report, runErr error) {
	log := logger.WithContext(ctx, e.logger)

	var err error
	switch {
	case cfg.Mode() == types.BuildModeClean && runErr == nil:
		err = e.store.Remove(cfg.Output)
	case cfg.Mode() == types.BuildModeClean:
		return
	default:
		rec := state.BuildRecord{
			Output:   cfg.Output,
			Manifest: manifest,
			Mode:     cfg.Mode(),
			Status:   types.BuildStatusSucceeded,
			BuildID:  pcontext.GetBuildID(ctx),
		}
		if report != nil {
			rec.BuildDuration = report.Duration
		}
		if runErr != nil {
			rec.Status = types.BuildStatusFailed
			rec.LastError = runErr.Error()
		}
		err = e.store.Record(rec)
	}
	if err != nil {
		log.Warn("Failed to update build record", logger.WithField("error", err))
	}
}
