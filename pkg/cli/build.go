package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cherry/cherry/internal/engine"
	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/process"
)

// ManifestExt is the extension of manifest files found in directories
const ManifestExt = ".cherry"

func (c *CLI) runBuild(ctx context.Context, args []string) error {
	cfg, log, err := c.buildConfig()
	if err != nil {
		return err
	}

	manifests, err := c.expandManifests(args)
	if err != nil {
		return err
	}
	if err := checkOutput(cfg, manifests); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pm := process.NewManager(log)
	pm.RegisterShutdownHandler(cancel)
	pm.Start(ctx)
	defer pm.Stop()

	e := engine.New(cfg, log, c.engineOptions...)
	for _, m := range manifests {
		if _, err := e.Build(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// expandManifests turns the positional arguments into manifest paths. No
// arguments means the current directory; a directory stands for the
// manifests it directly contains, in name order.
func (c *CLI) expandManifests(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var manifests []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the build itself.
			manifests = append(manifests, arg)
			continue
		}

		found, err := listManifests(arg)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			c.console.Warn(fmt.Sprintf("No %s files in %s", ManifestExt, arg))
			continue
		}
		manifests = append(manifests, found...)
	}
	return manifests, nil
}

// listManifests returns the regular *.cherry files in dir, sorted. Hidden
// entries are skipped, among them the build record directory.
func listManifests(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var found []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ManifestExt {
			continue
		}
		found = append(found, filepath.Join(dir, name))
	}
	sort.Strings(found)
	return found, nil
}

func checkOutput(cfg config.BuildConfig, manifests []string) error {
	if cfg.Output != "" && len(manifests) > 1 {
		return fmt.Errorf("%w: --output needs exactly one manifest, got %d",
			config.ErrConfiguration, len(manifests))
	}
	return nil
}

func manifestNames(manifests []string) logger.Field {
	names := make([]string, len(manifests))
	for i, m := range manifests {
		names[i] = filepath.Base(m)
	}
	return logger.WithField("manifests", names)
}
