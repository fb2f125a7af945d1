// SPDX-License-Identifier: MPL-2.0

package job

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stackctl/internal/issue"
)

// Store persists job records between invocations. The on-disk format is a
// single JSON document holding every known job keyed by ID, written
// atomically so a crash mid-save never leaves a truncated file behind.
type Store struct {
	path string
}

// NewStore returns a store backed by the JSON file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store reads from and writes to.
func (s *Store) Path() string {
	return s.path
}

// Load reads every persisted job. A missing file is not an error; it simply
// means no jobs have been recorded yet.
func (s *Store) Load() (map[string]*Job, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Job{}, nil
		}
		return nil, issue.NewErrorContext().
			WithOperation("loading job state").
			WithResource(s.path).
			WithSuggestion("check that the state file is readable").
			Wrap(err).
			BuildError()
	}

	jobs := map[string]*Job{}
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("decoding job state").
			WithResource(s.path).
			WithSuggestion("the state file is corrupt; remove it to start fresh").
			Wrap(err).
			BuildError()
	}
	return jobs, nil
}

// Save writes the full job set atomically: marshal to a temp file in the
// same directory, then rename over the target.
func (s *Store) Save(jobs map[string]*Job) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding job state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return issue.WrapWithOperation(err, "creating job state directory")
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return issue.WrapWithOperation(err, "creating temporary state file")
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return issue.WrapWithOperation(werr, "writing job state")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return issue.WrapWithOperation(err, "replacing job state file")
	}
	return nil
}
