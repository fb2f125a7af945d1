// SPDX-License-Identifier: MPL-2.0

// Package job provides a local job submit/monitor framework for deployment
// workflows: installs, smoke tests, data preparation.
//
// Jobs move PENDING → RUNNING → {SUCCEEDED, FAILED, CANCELLED}. The Manager
// bounds concurrency, applies per-attempt timeouts and retry policies with
// exponential backoff and jitter, captures per-job stdout/stderr logs, emits
// lifecycle events, and persists job records as JSON so later invocations
// can inspect them.
package job
