// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"maps"
	"os"
	"sort"
	"strings"
)

type (
	// EnvBuilder builds the child environment for setup steps.
	// It applies a 4-level precedence hierarchy (higher number wins):
	//
	//  1. Host environment
	//  2. Dotenv files (--env-file flag, loaded in flag order)
	//  3. Explicit vars (--env flag KEY=VALUE pairs)
	//  4. Step mutations (module loads, venv activation) - HIGHEST priority
	//
	// The interface exists so planners and executors can be tested with a
	// fixed environment instead of the process's.
	EnvBuilder interface {
		Build() (map[string]string, error)
	}

	// DefaultEnvBuilder implements the standard precedence for environment building.
	DefaultEnvBuilder struct {
		// Environ returns the host environment as "KEY=VALUE" strings.
		// When nil, os.Environ() is used.
		Environ func() []string
		// EnvFiles are dotenv file paths, resolved against the working directory.
		EnvFiles []string
		// EnvVars are explicit KEY=VALUE overrides.
		EnvVars map[string]string
		// Mutations are environment changes produced by earlier steps.
		Mutations map[string]string
	}

	// MockEnvBuilder is a test helper that returns a fixed environment map.
	MockEnvBuilder struct {
		Env map[string]string
		Err error
	}
)

// Build constructs the environment map following the documented precedence.
func (b *DefaultEnvBuilder) Build() (map[string]string, error) {
	environ := b.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := SliceToEnv(environ())

	for _, path := range b.EnvFiles {
		if err := LoadEnvFileFromCwd(env, path, ""); err != nil {
			return nil, err
		}
	}

	maps.Copy(env, b.EnvVars)
	maps.Copy(env, b.Mutations)

	return env, nil
}

// Build returns the fixed environment (or error) configured on the mock.
func (b *MockEnvBuilder) Build() (map[string]string, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return maps.Clone(b.Env), nil
}

// HostEnv returns the current process environment as a map.
func HostEnv() map[string]string {
	return SliceToEnv(os.Environ())
}

// EnvToSlice converts an env map to sorted "KEY=VALUE" strings.
// Sorting keeps child environments deterministic for tests and logs.
func EnvToSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// SliceToEnv converts "KEY=VALUE" strings to an env map.
// Malformed entries without '=' are skipped.
func SliceToEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// PrependPath returns env["PATH"] with dir prepended, handling the empty case.
func PrependPath(env map[string]string, dir string) string {
	cur := env["PATH"]
	if cur == "" {
		return dir
	}
	return dir + string(os.PathListSeparator) + cur
}
