// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines error types that carry remediation steps, plus a catalog of known
// failure modes rendered as Markdown, so setup and job failures surface with
// concrete next steps instead of raw tool output alone.
package issue
