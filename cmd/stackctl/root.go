// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for stackctl.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"stackctl/internal/config"
	"stackctl/internal/issue"
	"stackctl/internal/logging"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "stackctl",
		Short: "Deployment environment and job manager for Python compute stacks",
		Long: TitleStyle.Render("stackctl") + SubtitleStyle.Render(" - Deployment environment and job manager") + `

stackctl prepares Python deployment environments and runs managed
jobs inside them. On shared compute clusters it loads the required
system modules, provisions a virtual environment, and installs the
pinned GPU stack; on a workstation it installs the local requirements
directly.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Put your requirements files under deploy/
  2. Run 'stackctl setup scc' on the cluster or 'stackctl setup local' at home
  3. Launch workloads with: stackctl job run -- python train.py

` + SubtitleStyle.Render("Examples:") + `
  stackctl setup              Prepare the cluster environment (default mode)
  stackctl setup local        Install local requirements only
  stackctl setup scc --dry-run   Print the plan without running it
  stackctl job run -- python train.py   Run a managed job
  stackctl job list           Show all known jobs
  stackctl config show        Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/stackctl/config.toml)")

	// Add subcommands
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	cfg, err := config.Load()
	if err != nil {
		// Config problems are surfaced but never abort the command;
		// defaults keep everything usable.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}

	// Apply verbose from config if not set via flag
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
	logging.SetVerbose(verbose)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
