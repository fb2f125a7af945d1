// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates stackctl configuration.
//
// Configuration comes from a TOML file in the platform config directory,
// overridable with --config, with STACKCTL_* environment bindings and
// built-in defaults underneath. All knobs the setup and job commands use
// (deploy paths, venv location, cluster modules, pinned accelerator,
// job manager limits) live here.
package config
