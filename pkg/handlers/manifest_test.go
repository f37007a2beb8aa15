package handlers_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cherry/cherry/pkg/handlers"
	"github.com/cherry/cherry/pkg/mocks"
	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
	"github.com/cherry/cherry/pkg/types"
)

// expand runs the manifest handler over root until only non-manifest sources
// are left and returns their origins in pop order.
func expand(t *testing.T, h *handlers.ManifestHandler, root source.Source) ([]string, error) {
	t.Helper()
	wl := queue.NewWorklist()
	wl.PushBack(root)

	var origins []string
	for {
		src, ok := wl.PopBack()
		if !ok {
			return origins, nil
		}
		if src.Type() != types.FileTypeManifest {
			origins = append(origins, src.Origin())
			continue
		}
		if err := h.Handle(context.Background(), src, wl); err != nil {
			return origins, err
		}
	}
}

func TestParseManifest(t *testing.T) {
	data := []byte("# vendor\nlib/jquery.js\n\n  app.js  \r\n#app.css\nhttps://cdn.example.com/x.css\n")
	want := []string{"lib/jquery.js", "app.js", "https://cdn.example.com/x.css"}

	if diff := cmp.Diff(want, handlers.ParseManifest(data)); diff != "" {
		t.Errorf("ParseManifest() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, handlers.ParseManifest([]byte("\n# nothing\n\n")))
}

func TestManifest_NestedOrder(t *testing.T) {
	p := newProject(t)
	root := p.write(t, "web/root.cherry", "a.js\nlib/lib.cherry\nc.js\n")
	p.write(t, "web/lib/lib.cherry", "b.js\n")

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{})
	got, err := expand(t, h, source.NewFile(root))
	require.NoError(t, err)

	want := []string{
		filepath.Join(p.web, "a.js"),
		filepath.Join(p.web, "lib", "b.js"),
		filepath.Join(p.web, "c.js"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestManifest_AbsoluteEntryKept(t *testing.T) {
	p := newProject(t)
	abs := filepath.Join(p.root, "vendor", "jquery.js")
	root := p.write(t, "web/app.cherry", abs+"\n")

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{})
	got, err := expand(t, h, source.NewFile(root))
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, got)
}

func TestManifest_EmptyExpandsToNothing(t *testing.T) {
	p := newProject(t)
	root := p.write(t, "web/app.cherry", "# nothing yet\n\n")

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{})
	got, err := expand(t, h, source.NewFile(root))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestManifest_MissingManifest(t *testing.T) {
	p := newProject(t)

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{})
	_, err := expand(t, h, source.NewFile(filepath.Join(p.web, "gone.cherry")))
	assert.True(t, errors.Is(err, source.ErrMissingSource))
}

func TestManifest_RemoteEntries(t *testing.T) {
	p := newProject(t)
	fetcher := mocks.NewMockFetcher(map[string]string{
		"https://cdn.example.com/kit/kit.cherry": "kit.js\n../shared/util.js\n",
	})
	root := p.write(t, "web/app.cherry", "https://cdn.example.com/kit/kit.cherry\n")

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{Fetcher: fetcher})
	got, err := expand(t, h, source.NewFile(root))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://cdn.example.com/kit/kit.js",
		"https://cdn.example.com/shared/util.js",
	}, got)
	assert.Equal(t, 1, fetcher.Calls("https://cdn.example.com/kit/kit.cherry"))
	assert.Equal(t, 0, fetcher.Calls("https://cdn.example.com/kit/kit.js"), "entries are not downloaded while expanding")
}

func TestManifest_RemoteEntriesCached(t *testing.T) {
	p := newProject(t)
	url := "https://cdn.example.com/theme.css"
	fetcher := mocks.NewMockFetcher(map[string]string{url: "body{}"})
	root := p.write(t, "web/app.cherry", url+"\n")

	cfg := p.config()
	cfg.Dev = true
	cfg.Cache.Enabled = true
	cfg = cfg.ForManifest(root)

	h := handlers.NewManifestHandler(cfg, handlers.Deps{Fetcher: fetcher})
	got, err := expand(t, h, source.NewFile(root))
	require.NoError(t, err)

	cached := source.CachePath(filepath.Join(p.web, ".app.cherry.cache"), url)
	assert.Equal(t, []string{cached}, got)
	data, err := os.ReadFile(cached)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))
}

func TestManifest_CycleDetected(t *testing.T) {
	p := newProject(t)
	root := p.write(t, "web/a.cherry", "one.js\nb.cherry\n")
	p.write(t, "web/b.cherry", "two.js\n./a.cherry\n")

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{})
	_, err := expand(t, h, source.NewFile(root))
	require.Error(t, err)
	assert.True(t, errors.Is(err, handlers.ErrManifestCycle))
	assert.Contains(t, err.Error(), "a.cherry -> ")
}

func TestManifest_SelfInclusion(t *testing.T) {
	p := newProject(t)
	root := p.write(t, "web/a.cherry", "a.cherry\n")

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{})
	_, err := expand(t, h, source.NewFile(root))
	assert.True(t, errors.Is(err, handlers.ErrManifestCycle))
}

func TestManifest_DiamondIsNotACycle(t *testing.T) {
	p := newProject(t)
	root := p.write(t, "web/app.cherry", "left.cherry\nright.cherry\n")
	p.write(t, "web/left.cherry", "shared.cherry\n")
	p.write(t, "web/right.cherry", "shared.cherry\n")
	p.write(t, "web/shared.cherry", "shared.js\n")

	h := handlers.NewManifestHandler(p.config(), handlers.Deps{})
	got, err := expand(t, h, source.NewFile(root))
	require.NoError(t, err)

	shared := filepath.Join(p.web, "shared.js")
	assert.Equal(t, []string{shared, shared}, got)
}
