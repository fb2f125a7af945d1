// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"stackctl/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stackctl configuration",
	Long: `Manage stackctl configuration.

Configuration is stored in:
  - Linux: ~/.config/stackctl/config.toml
  - macOS: ~/Library/Application Support/stackctl/config.toml
  - Windows: %APPDATA%\stackctl\config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile(cmd)
		},
	})
}

// showConfig prints the effective configuration (defaults merged with the
// config file and STACKCTL_* environment overrides).
func showConfig(cmd *cobra.Command) error {
	cfg, path, err := config.LoadWithPath()
	if err != nil {
		return err
	}

	if path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("# loaded from "+path))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("# built-in defaults (no config file found)"))
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func showConfigPath(cmd *cobra.Command) error {
	path, err := config.DefaultConfigFilePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// initConfigFile writes the default configuration, refusing to clobber an
// existing file.
func initConfigFile(cmd *cobra.Command) error {
	path, err := config.DefaultConfigFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("rendering default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Created ")+CmdStyle.Render(path))
	return nil
}
