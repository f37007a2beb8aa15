package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cherry/cherry/internal/state"
	"github.com/cherry/cherry/pkg/types"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [files...]",
		Short: "Show the last build of each manifest",
		Long:  `Display the mode, outcome and counters recorded by the last build of each manifest.`,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(args)
		},
	}
}

func (c *CLI) runStatus(args []string) error {
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

	store := state.NewStore(log)

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MANIFEST\tMODE\tSTATUS\tLAST BUILD\tBUILDS\tFAILURES")
	fmt.Fprintln(w, "--------\t----\t------\t----------\t------\t--------")

	for _, m := range manifests {
		abs, err := filepath.Abs(m)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", m, err)
		}
		output, err := filepath.Abs(cfg.ForManifest(abs).Output)
		if err != nil {
			return fmt.Errorf("failed to resolve output for %s: %w", m, err)
		}

		mode, status, lastBuild := "-", "never built", "-"
		builds, failures := 0, 0

		rec, err := store.Load(output)
		if err != nil {
			status = "unreadable"
		} else if rec != nil {
			mode = string(rec.Mode)
			status = string(rec.Status)
			if !rec.LastBuildTime.IsZero() {
				lastBuild = rec.LastBuildTime.Format("2006-01-02 15:04:05")
			}
			builds = rec.BuildCount
			failures = rec.FailureCount
		}

		statusColor := color.WhiteString(status)
		switch types.BuildStatus(status) {
		case types.BuildStatusSucceeded:
			statusColor = color.GreenString(status)
		case types.BuildStatusFailed:
			statusColor = color.RedString(status)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			filepath.Base(abs),
			mode,
			statusColor,
			lastBuild,
			builds,
			failures,
		)
	}

	return w.Flush()
}

func (c *CLI) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  `Print the configuration a build would use after merging defaults, the config file, CHERRY_* variables and flags.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.buildConfig()
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(c.output)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			return enc.Close()
		},
	}
}
