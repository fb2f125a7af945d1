// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIdConstants(t *testing.T) {
	t.Parallel()

	ids := []Id{
		InvalidModeId,
		ModuleToolNotFoundId,
		PythonNotFoundId,
		VenvCreateFailedId,
		InstallFailedId,
		ConfigLoadFailedId,
		ShellNotFoundId,
		JobNotFoundId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if InvalidModeId != 1 {
		t.Errorf("InvalidModeId = %d, want 1", InvalidModeId)
	}
}

func TestCatalogComplete(t *testing.T) {
	t.Parallel()

	ids := []Id{
		InvalidModeId,
		ModuleToolNotFoundId,
		PythonNotFoundId,
		VenvCreateFailedId,
		InstallFailedId,
		ConfigLoadFailedId,
		ShellNotFoundId,
		JobNotFoundId,
	}

	for _, id := range ids {
		iss := Get(id)
		if iss == nil {
			t.Errorf("Get(%d) = nil, want cataloged issue", id)
			continue
		}
		if iss.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, iss.Id())
		}
		if strings.TrimSpace(string(iss.MarkdownMsg())) == "" {
			t.Errorf("issue %d has empty message", id)
		}
		if strings.Contains(string(iss.MarkdownMsg()), "\u2014") {
			t.Errorf("issue %d guidance uses an em dash", id)
		}
	}

	if len(Values()) != len(ids) {
		t.Errorf("Values() returned %d issues, want %d", len(Values()), len(ids))
	}
}

func TestGetUnknownId(t *testing.T) {
	t.Parallel()

	if got := Get(Id(9999)); got != nil {
		t.Errorf("Get(9999) = %v, want nil", got)
	}
}

func TestIssueRender(t *testing.T) {
	// Override the markdown renderer so the test does not depend on
	// terminal detection.
	orig := render
	render = func(in, _ string) (string, error) { return in, nil }
	defer func() { render = orig }()

	out, err := Get(InvalidModeId).Render("dark")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "local") || !strings.Contains(out, "scc") {
		t.Errorf("rendered guidance missing modes: %q", out)
	}
}

func TestRenderFor(t *testing.T) {
	orig := render
	render = func(in, _ string) (string, error) { return in, nil }
	defer func() { render = orig }()

	withId := NewErrorContext().
		WithOperation("install requirements").
		WithIssue(InstallFailedId).
		Wrap(errors.New("exit status 1")).
		BuildError()
	out, ok := RenderFor(fmt.Errorf("step failed: %w", withId), "dark")
	if !ok {
		t.Fatal("RenderFor() should find the issue id through the chain")
	}
	if !strings.Contains(out, "installation failed") {
		t.Errorf("rendered guidance missing catalog text: %q", out)
	}

	noId := NewErrorContext().
		WithOperation("install requirements").
		Wrap(errors.New("exit status 1")).
		BuildError()
	if _, ok := RenderFor(noId, "dark"); ok {
		t.Error("RenderFor() should report false without an issue id")
	}

	if _, ok := RenderFor(errors.New("plain"), "dark"); ok {
		t.Error("RenderFor() should report false for non-actionable errors")
	}

	unknown := &ActionableError{Operation: "install requirements", Issue: Id(9999)}
	if _, ok := RenderFor(unknown, "dark"); ok {
		t.Error("RenderFor() should report false for an uncataloged id")
	}
}
