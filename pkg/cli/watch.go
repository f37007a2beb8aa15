package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cherry/cherry/internal/engine"
	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/notifier"
	"github.com/cherry/cherry/pkg/process"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [files...]",
		Short: "Build, then rebuild whenever a source changes",
		Long: `Build the given manifests once, then watch every local file the builds read
and rebuild the manifests that read a changed file. Build errors are logged and
the watch goes on. Editing the config file rebuilds everything with the new
settings.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args)
		},
	}
}

func (c *CLI) runWatch(ctx context.Context, args []string) error {
	cfg, log, err := c.buildConfig()
	if err != nil {
		return err
	}

	manifests, err := c.expandManifests(args)
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		return fmt.Errorf("nothing to watch")
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

	n := notifier.New(notifier.Config{Enabled: cfg.Notify, Sound: cfg.Notify}, log)
	session, err := engine.NewSession(engine.New(cfg, log, c.engineOptions...), manifests, n, log)
	if err != nil {
		return err
	}

	g, gctx := engine.NewSafeGroup(ctx, log)
	g.Go(func() error {
		return session.Run(gctx)
	})

	if path := c.viper.ConfigFileUsed(); path != "" {
		rm := config.NewReloadManager(path, log, c.reloadConfig)
		rm.AddCallback(func(newCfg config.BuildConfig, err error) {
			if err != nil {
				log.Warn("Keeping previous configuration", logger.WithField("error", err))
				return
			}
			session.SetEngine(engine.New(newCfg, log, c.engineOptions...))
			session.Rebuild(gctx)
		})
		if err := rm.StartWatching(gctx); err != nil {
			log.Warn("Config file changes will not be picked up", logger.WithField("error", err))
		} else {
			defer rm.StopWatching()
		}
	}

	log.Info("Watch started", manifestNames(manifests))
	err = g.Wait()
	log.Info("Watch stopped")
	return err
}

// reloadConfig re-reads the config file; flags and environment still apply
func (c *CLI) reloadConfig() (config.BuildConfig, error) {
	if err := c.viper.ReadInConfig(); err != nil {
		return config.BuildConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return config.FromViper(c.viper)
}
