// SPDX-License-Identifier: MPL-2.0

package config

import "context"

var (
	// configDirOverride allows tests to override the config directory.
	// Necessary because os.UserHomeDir() doesn't reliably respect the HOME
	// environment variable on all platforms (e.g., macOS in CI).
	configDirOverride string

	// configFilePathOverride is the --config flag value, applied to the
	// package-level Load().
	configFilePathOverride string
)

// Reset clears overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
	configFilePathOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
// Primarily intended for testing.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetConfigFilePathOverride sets a custom config file path (--config flag).
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}

// Load loads configuration honoring the package-level overrides.
// It is the convenience entry point for the CLI layer.
func Load() (*Config, error) {
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: configFilePathOverride,
	})
	return cfg, err
}

// LoadWithPath is Load plus the resolved config file path ("" when running
// on pure defaults).
func LoadWithPath() (*Config, string, error) {
	return loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: configFilePathOverride,
	})
}
