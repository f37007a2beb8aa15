// Package handlers provides the per-type build handlers
package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/process"
	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
	"github.com/cherry/cherry/pkg/utils"
)

// Handler processes the sources of the types it registers for. Handle is
// called once per dispatched source and may schedule new sources of any type.
// Finalize is called once after the worklist is empty.
type Handler interface {
	Name() string
	FileTypes() []types.FileType
	Handle(ctx context.Context, src source.Source, wl queue.Scheduler) error
	Finalize(ctx context.Context) error
}

// Deps are the collaborators shared by the handlers of one build
type Deps struct {
	Logger  logger.Logger
	Runner  process.Runner
	Fetcher source.Fetcher
}

const defaultFetchTimeout = 30 * time.Second

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}
	if d.Runner == nil {
		d.Runner = process.NewExecRunner()
	}
	if d.Fetcher == nil {
		d.Fetcher = source.NewHTTPFetcher(defaultFetchTimeout)
	}
	return d
}

// Default returns a fresh set of handlers in registration order
func Default(cfg config.BuildConfig, deps Deps) []Handler {
	deps = deps.withDefaults()
	return []Handler{
		NewJavaScriptHandler(cfg, deps),
		NewTemplateHandler(cfg, deps),
		NewStylesheetHandler(cfg, deps),
		NewManifestHandler(cfg, deps),
	}
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	Config config.BuildConfig
	Logger logger.Logger
	Runner process.Runner

	name string
}

// NewBaseHandler creates a base handler logging under name
func NewBaseHandler(name string, cfg config.BuildConfig, deps Deps) BaseHandler {
	deps = deps.withDefaults()
	return BaseHandler{
		Config: cfg,
		Logger: deps.Logger.WithComponent(name),
		Runner: deps.Runner,
		name:   name,
	}
}

// Name returns the handler name
func (b *BaseHandler) Name() string {
	return b.name
}

// OutputDir is the directory the artifacts are written to
func (b *BaseHandler) OutputDir() string {
	return filepath.Dir(b.Config.Output)
}

// ArtifactPath returns the output base name with ext appended
func (b *BaseHandler) ArtifactPath(ext string) string {
	return b.Config.Output + ext
}

func (b *BaseHandler) log(ctx context.Context) logger.Logger {
	return logger.WithContext(ctx, b.Logger)
}

// subPath returns how the page loads the file at path, relative to the output
// directory. Out-of-tree files are copied unless this is a clean build.
func (b *BaseHandler) subPath(path string) (string, error) {
	decision, err := utils.ResolveSubPath(path, b.OutputDir(), !b.Config.Clean)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(decision.Path), nil
}

// includePath is subPath for local origins, which must exist; URLs are used
// as they are
func (b *BaseHandler) includePath(origin string) (string, error) {
	if source.IsURL(origin) {
		return origin, nil
	}
	if !utils.FileExists(origin) {
		return "", fmt.Errorf("%w: %s", source.ErrMissingSource, origin)
	}
	return b.subPath(origin)
}

func (b *BaseHandler) cleanSubPath(ctx context.Context, path string) error {
	if path == "" || source.IsURL(path) {
		return nil
	}
	removed, err := utils.CleanSubPath(path, b.OutputDir())
	if err != nil {
		return err
	}
	if removed != "" {
		b.log(ctx).Debug("Removed file", logger.WithField("path", removed))
	}
	return nil
}

func (b *BaseHandler) removeIfExists(ctx context.Context, path string) error {
	removed, err := utils.RemoveIfExists(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	if removed {
		b.log(ctx).Debug("Removed file", logger.WithField("path", path))
	}
	return nil
}

func (b *BaseHandler) run(ctx context.Context, command string, args []string, inputs [][]byte) ([]byte, error) {
	b.log(ctx).Debug("Running command",
		logger.WithField("command", command),
		logger.WithField("args", strings.Join(args, " ")))

	start := time.Now()
	out, err := b.Runner.Run(ctx, command, args, inputs)
	if err != nil {
		return nil, err
	}
	b.log(ctx).Debug("Command finished",
		logger.WithField("command", command),
		logger.WithField("duration", time.Since(start).Round(time.Millisecond)))
	return out, nil
}

func (b *BaseHandler) writeArtifact(ctx context.Context, path string, data []byte) error {
	if err := utils.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	b.log(ctx).Debug("Wrote artifact",
		logger.WithField("path", path),
		logger.WithField("bytes", len(data)))
	return nil
}

func readAll(sources []source.Source) ([][]byte, error) {
	inputs := make([][]byte, 0, len(sources))
	for _, src := range sources {
		data, err := src.Read()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, data)
	}
	return inputs, nil
}
