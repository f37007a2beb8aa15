package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
)

// StylesheetHandler compiles CSS and LESS sources into <output>.css. In dev
// mode each stylesheet is instead linked from the JavaScript bundle.
type StylesheetHandler struct {
	BaseHandler
	sources []source.Source
	hasLess bool
}

// NewStylesheetHandler creates the stylesheet handler
func NewStylesheetHandler(cfg config.BuildConfig, deps Deps) *StylesheetHandler {
	return &StylesheetHandler{BaseHandler: NewBaseHandler("stylesheet", cfg, deps)}
}

// FileTypes returns the types handled
func (h *StylesheetHandler) FileTypes() []types.FileType {
	return []types.FileType{types.FileTypeCSS, types.FileTypeLess}
}

// Handle accumulates src, or in dev mode schedules an include for it. The
// first LESS source in dev mode also schedules the less.js runtime; it is
// pushed to the front so it loads after the stylesheet links it compiles.
func (h *StylesheetHandler) Handle(ctx context.Context, src source.Source, wl queue.Scheduler) error {
	mode := h.Config.Mode()

	if src.Type() == types.FileTypeLess && !h.hasLess {
		h.hasLess = true
		if mode == types.BuildModeDev {
			if _, err := h.subPath(h.Config.Tools.LessJS); err != nil {
				return err
			}
			wl.PushFront(source.NewFile(h.Config.Tools.LessJS))
		}
	}

	if mode != types.BuildModeDev {
		h.sources = append(h.sources, src)
		return nil
	}

	origin := src.Origin()
	if origin == "" {
		return fmt.Errorf("%w: stylesheet without a path", ErrUnsupportedSource)
	}
	path, err := h.includePath(origin)
	if err != nil {
		return err
	}
	wl.PushBack(source.NewInclude(src.Type(), path))
	return nil
}

// Finalize compiles the stylesheet, or removes it in clean and dev mode
func (h *StylesheetHandler) Finalize(ctx context.Context) error {
	out := h.ArtifactPath(".css")

	switch h.Config.Mode() {
	case types.BuildModeClean:
		if err := h.removeIfExists(ctx, out); err != nil {
			return err
		}
		for _, src := range h.sources {
			if err := h.cleanSubPath(ctx, src.Origin()); err != nil {
				return err
			}
		}
		if h.hasLess {
			return h.cleanSubPath(ctx, h.Config.Tools.LessJS)
		}
		return nil

	case types.BuildModeDev:
		return h.removeIfExists(ctx, out)

	default:
		if len(h.sources) == 0 {
			return nil
		}
		h.log(ctx).Info("Compiling CSS stylesheet", logger.WithField("path", out))
		inputs, err := h.imports()
		if err != nil {
			return err
		}
		args := []string{"-"}
		if !h.Config.Pretty {
			args = append(args, "--compress")
		}
		compiled, err := h.run(ctx, h.Config.Tools.Lessc, args, inputs)
		if err != nil {
			return err
		}
		return h.writeArtifact(ctx, out, compiled)
	}
}

// imports references every source by path so relative URLs inside the
// stylesheets keep resolving against their own directories.
func (h *StylesheetHandler) imports() ([][]byte, error) {
	inputs := make([][]byte, 0, len(h.sources))
	for _, src := range h.sources {
		ref := src.Origin()
		if ref == "" {
			return nil, fmt.Errorf("%w: stylesheet without a path", ErrUnsupportedSource)
		}
		if !source.IsURL(ref) {
			abs, err := filepath.Abs(ref)
			if err != nil {
				return nil, err
			}
			ref = abs
		}
		inputs = append(inputs, []byte(fmt.Sprintf("@import \"%s\";\n", escapeLess(ref))))
	}
	return inputs, nil
}

var lessSpecial = regexp.MustCompile(`['"\n\\]`)

// escapeLess escapes the characters that would end a LESS string literal
func escapeLess(s string) string {
	return lessSpecial.ReplaceAllStringFunc(s, func(m string) string {
		return fmt.Sprintf("\\%X ", m[0])
	})
}
