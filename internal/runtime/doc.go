// SPDX-License-Identifier: MPL-2.0

// Package runtime provides the shell execution runners used by setup steps.
//
// Two runners are available: native (the system shell via os/exec) and
// virtual (the embedded mvdan/sh interpreter). Both take a Script plus an
// ExecutionContext and return a Result carrying the process exit code, so
// delegated failures propagate verbatim to the caller.
package runtime
