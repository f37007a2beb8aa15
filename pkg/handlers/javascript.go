package handlers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
)

// JavaScriptHandler bundles every JavaScript source into <output>.js
type JavaScriptHandler struct {
	BaseHandler
	sources []source.Source
}

// NewJavaScriptHandler creates the JavaScript handler
func NewJavaScriptHandler(cfg config.BuildConfig, deps Deps) *JavaScriptHandler {
	return &JavaScriptHandler{BaseHandler: NewBaseHandler("javascript", cfg, deps)}
}

// FileTypes returns the types handled
func (h *JavaScriptHandler) FileTypes() []types.FileType {
	return []types.FileType{types.FileTypeJavaScript}
}

// Handle appends src to the bundle
func (h *JavaScriptHandler) Handle(ctx context.Context, src source.Source, wl queue.Scheduler) error {
	h.sources = append(h.sources, src)
	return nil
}

// Finalize writes, or in clean mode removes, the bundle
func (h *JavaScriptHandler) Finalize(ctx context.Context) error {
	out := h.ArtifactPath(".js")

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
		return nil

	case types.BuildModeDev:
		h.log(ctx).Info("Generating", logger.WithField("path", out))
		bundle, err := h.devBundle(filepath.Base(out))
		if err != nil {
			return err
		}
		return h.writeArtifact(ctx, out, bundle)

	default:
		if len(h.sources) == 0 {
			return nil
		}
		h.log(ctx).Info("Minifying JavaScript", logger.WithField("path", out))
		inputs, err := readAll(h.sources)
		if err != nil {
			return err
		}
		var args []string
		if h.Config.Pretty {
			args = append(args, "--beautify")
		}
		minified, err := h.run(ctx, h.Config.Tools.UglifyJS, args, inputs)
		if err != nil {
			return err
		}
		return h.writeArtifact(ctx, out, minified)
	}
}

// devBundle loads each source separately so the browser shows the original files
func (h *JavaScriptHandler) devBundle(name string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(jsRuntimeStart)
	fmt.Fprintf(&buf, "cherry.set_base_url(%s);\n", source.Quote(name))

	for _, src := range h.sources {
		origin := src.Origin()
		if origin == "" {
			data, err := src.Read()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			continue
		}
		path, err := h.includePath(origin)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "cherry.include_js(%s);\n", source.Quote(path))
	}

	buf.WriteString(jsRuntimeEnd)
	return buf.Bytes(), nil
}
