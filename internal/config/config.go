// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"stackctl/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "stackctl"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// ConfigDir returns the stackctl configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level cache state. Callers that want caching can wrap this function.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("venv_dir", defaults.VenvDir)
	v.SetDefault("python", defaults.Python)
	v.SetDefault("runner", defaults.Runner)
	v.SetDefault("modules", defaults.Modules)
	v.SetDefault("pinned_accelerator", defaults.PinnedAccelerator)
	v.SetDefault("requirements.local", defaults.Requirements.Local)
	v.SetDefault("requirements.cluster", defaults.Requirements.Cluster)
	v.SetDefault("jobs.log_root", defaults.Jobs.LogRoot)
	v.SetDefault("jobs.state_path", defaults.Jobs.StatePath)
	v.SetDefault("jobs.max_concurrent", defaults.Jobs.MaxConcurrent)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	// A custom config file path is used exclusively when set.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'stackctl config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the file contains valid TOML syntax").
				WithSuggestion("Verify the values match the expected schema").
				WithSuggestion("See 'stackctl config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		v.AddConfigPath(cfgDir)
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)

		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine: defaults apply.
			var notFound viper.ConfigFileNotFoundError
			if ok := asConfigNotFound(err, &notFound); !ok {
				return nil, "", issue.NewErrorContext().
					WithOperation("load configuration").
					WithIssue(issue.ConfigLoadFailedId).
					WithResource(filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)).
					WithSuggestion("Check that the file contains valid TOML syntax").
					Wrap(err).
					BuildError()
			}
		} else {
			resolvedPath = v.ConfigFileUsed()
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("parse configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithResource(resolvedPath).
			Wrap(err).
			BuildError()
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithResource(resolvedPath).
			WithSuggestion("Fix the listed values or remove them to fall back to defaults").
			Wrap(err).
			BuildError()
	}

	return cfg, resolvedPath, nil
}

// DefaultConfigFilePath returns where the default config file lives
// (whether or not it exists).
func DefaultConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

func configDirWithOverride(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return ConfigDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// asConfigNotFound reports whether err is viper's config-file-not-found error.
func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}
