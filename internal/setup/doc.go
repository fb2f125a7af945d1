// SPDX-License-Identifier: MPL-2.0

// Package setup implements the environment selector: it maps a setup mode
// (local, scc, or empty) to an ordered plan of preparation and install steps
// and executes that plan through a runtime runner.
//
// Local mode installs the workstation requirements file and nothing else.
// Cluster mode loads the configured system modules, creates the virtual
// environment if absent, activates it, installs the pinned GPU-enabled
// numerical library, and finally installs the cluster requirements file.
// Any step failure aborts the plan and propagates that step's exit status.
package setup
