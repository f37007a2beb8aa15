package handlers

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
)

// ManifestHandler expands .cherry manifests into their entries
type ManifestHandler struct {
	BaseHandler
	fetcher source.Fetcher
	// ancestors maps each scheduled nested manifest to the chain of manifests
	// that led to it
	ancestors map[source.Source][]string
}

// NewManifestHandler creates the manifest handler
func NewManifestHandler(cfg config.BuildConfig, deps Deps) *ManifestHandler {
	deps = deps.withDefaults()
	return &ManifestHandler{
		BaseHandler: NewBaseHandler("manifest", cfg, deps),
		fetcher:     deps.Fetcher,
		ancestors:   make(map[source.Source][]string),
	}
}

// FileTypes returns the types handled
func (h *ManifestHandler) FileTypes() []types.FileType {
	return []types.FileType{types.FileTypeManifest}
}

// ParseManifest returns the entries of a manifest in declared order.
// Blank lines and lines starting with '#' are skipped.
func ParseManifest(data []byte) []string {
	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

// Handle schedules the entries of the manifest src. They are pushed in
// reverse so they are processed in declared order.
func (h *ManifestHandler) Handle(ctx context.Context, src source.Source, wl queue.Scheduler) error {
	key, err := manifestKey(src)
	if err != nil {
		return err
	}
	chain := h.ancestors[src]
	delete(h.ancestors, src)
	for _, ancestor := range chain {
		if ancestor == key {
			return fmt.Errorf("%w: %s", ErrManifestCycle, strings.Join(append(chain, key), " -> "))
		}
	}

	data, err := src.Read()
	if err != nil {
		return err
	}
	entries := ParseManifest(data)
	h.log(ctx).Debug("Expanding manifest",
		logger.WithField("path", src.Origin()),
		logger.WithField("entries", len(entries)))

	childChain := append(chain[:len(chain):len(chain)], key)
	for i := len(entries) - 1; i >= 0; i-- {
		child, err := h.resolve(ctx, src, entries[i])
		if err != nil {
			return err
		}
		if child.Type() == types.FileTypeManifest {
			h.ancestors[child] = childChain
		}
		wl.PushBack(child)
	}
	return nil
}

// Finalize does nothing; manifests produce no artifact
func (h *ManifestHandler) Finalize(ctx context.Context) error {
	return nil
}

// resolve turns a manifest entry into a source. Relative entries are relative
// to the manifest: its directory, or its URL for a remote manifest.
func (h *ManifestHandler) resolve(ctx context.Context, parent source.Source, entry string) (source.Source, error) {
	if source.IsURL(entry) {
		return h.remote(ctx, entry)
	}

	if remote, ok := parent.(interface{ URL() string }); ok {
		base, err := url.Parse(remote.URL())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", source.ErrMissingSource, remote.URL(), err)
		}
		ref, err := url.Parse(filepath.ToSlash(entry))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", source.ErrMissingSource, entry, err)
		}
		return h.remote(ctx, base.ResolveReference(ref).String())
	}

	if !filepath.IsAbs(entry) {
		entry = filepath.Join(filepath.Dir(parent.Origin()), entry)
	}
	return source.NewFile(entry), nil
}

func (h *ManifestHandler) remote(ctx context.Context, ref string) (source.Source, error) {
	policy := source.CachePolicy{
		Enabled:  h.Config.Cache.Enabled,
		Dir:      h.Config.Cache.Dir,
		Download: h.Config.Cache.Download,
	}
	return source.NewRemote(ctx, ref, policy, h.fetcher)
}

func manifestKey(src source.Source) (string, error) {
	if remote, ok := src.(interface{ URL() string }); ok {
		return remote.URL(), nil
	}
	if src.Origin() == "" {
		return "", nil
	}
	return filepath.Abs(src.Origin())
}
