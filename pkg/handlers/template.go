package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
)

const (
	soyCompilerJar = "SoyToJsSrcCompiler.jar"
	soyRuntime     = "soyutils.js"
)

// TemplateHandler compiles Closure Templates next to their sources and hands
// the generated scripts to the JavaScript handler.
type TemplateHandler struct {
	BaseHandler
	hasRuntime bool
}

// NewTemplateHandler creates the template handler
func NewTemplateHandler(cfg config.BuildConfig, deps Deps) *TemplateHandler {
	return &TemplateHandler{BaseHandler: NewBaseHandler("template", cfg, deps)}
}

// FileTypes returns the types handled
func (h *TemplateHandler) FileTypes() []types.FileType {
	return []types.FileType{types.FileTypeSoy}
}

// RuntimePath is the support script every compiled template needs
func (h *TemplateHandler) RuntimePath() string {
	return filepath.Join(h.Config.Tools.SoyDir, soyRuntime)
}

// Handle compiles src to <src>.js, or removes that file in clean mode, and
// schedules it. The first template also schedules the runtime script.
func (h *TemplateHandler) Handle(ctx context.Context, src source.Source, wl queue.Scheduler) error {
	path := src.Origin()
	if path == "" || source.IsURL(path) {
		return fmt.Errorf("%w: template %q is not a local file", ErrUnsupportedSource, path)
	}
	compiled := path + ".js"

	if h.Config.Clean {
		if err := h.removeIfExists(ctx, compiled); err != nil {
			return err
		}
	} else if err := h.compile(ctx, path); err != nil {
		return err
	}
	wl.PushBack(source.NewFile(compiled))

	if h.hasRuntime {
		return nil
	}
	h.hasRuntime = true
	runtime := h.RuntimePath()
	if h.Config.Clean {
		if err := h.cleanSubPath(ctx, runtime); err != nil {
			return err
		}
	} else if _, err := h.subPath(runtime); err != nil {
		return err
	}
	wl.PushBack(source.NewFile(runtime))
	return nil
}

func (h *TemplateHandler) compile(ctx context.Context, path string) error {
	h.log(ctx).Info("Compiling Closure Templates", logger.WithField("path", path))

	// The compiler mishandles input paths without a directory part.
	if !strings.ContainsRune(path, filepath.Separator) {
		path = "." + string(filepath.Separator) + path
	}
	args := []string{
		"-jar", filepath.Join(h.Config.Tools.SoyDir, soyCompilerJar),
		"--codeStyle", "stringbuilder",
		"--outputPathFormat", "{INPUT_DIRECTORY}/{INPUT_FILE_NAME}.js",
		path,
	}
	_, err := h.run(ctx, h.Config.Tools.Java, args, nil)
	return err
}

// Finalize does nothing; compiled templates end up in the JavaScript bundle
func (h *TemplateHandler) Finalize(ctx context.Context) error {
	return nil
}
