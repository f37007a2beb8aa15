// Package cli provides the command-line interface for cherry
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cherry/cherry/internal/engine"
	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/logger"
)

// Config holds the settings that are not part of a build configuration
type Config struct {
	ConfigFile string
	LogFile    string
	Version    string
}

// NewConfig returns the default CLI settings
func NewConfig() *Config {
	return &Config{Version: "dev"}
}

// CLI holds the command tree and the viper instance its flags are bound to
type CLI struct {
	config   *Config
	viper    *viper.Viper
	rootCmd  *cobra.Command
	output   io.Writer
	errorOut io.Writer
	console  *logger.ConsoleLogger

	engineOptions []engine.Option
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	return NewCLIWithOutput(cfg, os.Stdout, os.Stderr)
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	c := &CLI{
		config:   cfg,
		viper:    viper.New(),
		output:   output,
		errorOut: errorOut,
		console:  logger.NewConsoleLogger(output, errorOut),
	}
	config.SetDefaults(c.viper)
	c.setupCommands()
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "cherry [files...]",
		Short: "Build JavaScript and CSS bundles from .cherry manifests",
		Long: `🍒 cherry - front-end asset builds from plain manifest files

Each .cherry manifest lists scripts, stylesheets, templates and other manifests.
A production build concatenates and minifies them; a dev build (--dev) writes
loader files that include every source as-is. Directories build every .cherry
file they contain; with no arguments the current directory is used.`,

		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args)
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("🍒 cherry v{{.Version}}\n")
	c.rootCmd.SetOut(c.output)
	c.rootCmd.SetErr(c.errorOut)

	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newStatusCmd())
	c.rootCmd.AddCommand(c.newConfigCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "config file (default: ./cherry.config.{yaml,json})")
	flags.StringVar(&c.config.LogFile, "log-file", "", "also write the log to this file")

	flags.StringArrayP(config.KeySet, "s", nil, "set a tool parameter, NAME=VALUE (uglifyjs, lessc, java, soy_dir, less.js)")
	flags.IntP(config.KeyVerbose, "v", 1, "verbosity: 0 quiet, 1 default, 2 verbose")
	flags.BoolP(config.KeyDev, "d", false, "write dev loader files instead of minified bundles")
	flags.Bool(config.KeyCache, false, "mirror remote files into a local cache (dev only)")
	flags.String(config.KeyCacheOptions, "", "cache options: clean|noclean,force|local|auto")
	flags.StringP(config.KeyOutput, "o", "", "output base name (single manifest only)")
	flags.Bool(config.KeyClean, false, "remove the artifacts a build would write")
	flags.BoolP(config.KeyPretty, "p", false, "skip minification")
	flags.Bool(config.KeyNotify, false, "send desktop notifications from cherry watch")

	for _, key := range []string{
		config.KeySet,
		config.KeyVerbose,
		config.KeyDev,
		config.KeyCache,
		config.KeyCacheOptions,
		config.KeyOutput,
		config.KeyClean,
		config.KeyPretty,
		config.KeyNotify,
	} {
		// Only fails for a nil flag.
		_ = c.viper.BindPFlag(key, flags.Lookup(key))
	}
}

func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	if c.config.ConfigFile != "" {
		c.viper.SetConfigFile(c.config.ConfigFile)
	} else {
		c.viper.AddConfigPath(".")
		c.viper.SetConfigName("cherry.config")
	}

	c.viper.SetEnvPrefix("CHERRY")
	c.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.viper.AutomaticEnv()

	if err := c.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.config.ConfigFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// buildConfig returns the validated configuration and a logger at its level
func (c *CLI) buildConfig() (config.BuildConfig, logger.Logger, error) {
	cfg, err := config.FromViper(c.viper)
	if err != nil {
		return config.BuildConfig{}, nil, err
	}

	log := c.createLogger(cfg)
	if used := c.viper.ConfigFileUsed(); used != "" {
		log.Debug("Using config file", logger.WithField("file", used))
	}
	log.Debug("Build configuration", logger.WithField("config", cfg.String()))
	return cfg, log, nil
}

func (c *CLI) createLogger(cfg config.BuildConfig) logger.Logger {
	if c.errorOut == os.Stderr {
		return logger.CreateLogger(c.config.LogFile, cfg.LogLevel.String())
	}
	return logger.CreateLoggerWithOutput(c.config.LogFile, cfg.LogLevel.String(), c.errorOut)
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cherry",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "🍒 cherry v%s\n", c.config.Version)
		},
	}
}

// ExecuteWithVersion runs the CLI on os.Args with the given version
func ExecuteWithVersion(ctx context.Context, version string) error {
	cfg := NewConfig()
	cfg.Version = version
	return NewCLI(cfg).ExecuteContext(ctx, os.Args[1:])
}
