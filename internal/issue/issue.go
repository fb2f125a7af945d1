// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies a known issue in the catalog.
type Id int

const (
	InvalidModeId Id = iota + 1
	ModuleToolNotFoundId
	PythonNotFoundId
	VenvCreateFailedId
	InstallFailedId
	ConfigLoadFailedId
	ShellNotFoundId
	JobNotFoundId
)

type MarkdownMsg string

type HttpLink string

// Issue is a cataloged failure mode with rendered guidance.
type Issue struct {
	id       Id          // ID used to look up the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // optional pointers to further docs
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue's guidance as styled terminal output.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- " + string(link) + "\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	invalidModeIssue = &Issue{
		id: InvalidModeId,
		mdMsg: `
# Unknown setup mode!

The setup command accepts only the following modes:

- **local**: install workstation dependencies, no cluster preparation
- **scc**: load cluster modules, prepare the virtual environment, install GPU dependencies
- *(empty)*: same as ` + "`scc`" + `

## Things you can try:
~~~
$ stackctl setup local
$ stackctl setup scc
$ stackctl setup
~~~`,
	}

	moduleToolNotFoundIssue = &Issue{
		id: ModuleToolNotFoundId,
		mdMsg: `
# Module tool not found!

Cluster mode loads system modules through Lmod or Environment Modules, but no
module command was found on this host.

## Things you can try:
- Run cluster setup on a host that provides the module system (e.g., an SCC login node)
- Check that ` + "`$LMOD_CMD`" + ` is set or ` + "`modulecmd`" + ` is on your PATH
- Use local mode on hosts without a module system:
~~~
$ stackctl setup local
~~~`,
	}

	pythonNotFoundIssue = &Issue{
		id: PythonNotFoundId,
		mdMsg: `
# Python interpreter not found!

Creating the virtual environment requires a python interpreter.

## Things you can try:
- Install python3 and ensure it is on your PATH
- In cluster mode, verify the python module loads successfully
- Point the ` + "`python`" + ` config key at a specific interpreter`,
	}

	venvCreateFailedIssue = &Issue{
		id: VenvCreateFailedId,
		mdMsg: `
# Virtual environment creation failed!

The ` + "`python -m venv`" + ` step exited with an error.

## Things you can try:
- Check that the target directory is writable
- Remove a half-created environment directory and retry:
~~~
$ rm -rf env && stackctl setup
~~~
- Verify the interpreter ships the venv module (Debian/Ubuntu: ` + "`apt install python3-venv`" + `)`,
	}

	installFailedIssue = &Issue{
		id: InstallFailedId,
		mdMsg: `
# Package installation failed!

The installer exited with a non-zero status. Its output above usually names
the failing package.

## Things you can try:
- Re-run with verbose output:
~~~
$ stackctl --verbose setup
~~~
- Check network access to the package index
- Pin a compatible version in the requirements file`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your config file contains syntax errors or invalid values.

## Things you can try:
- Show the effective configuration and the file path:
~~~
$ stackctl config show
$ stackctl config path
~~~
- Check TOML syntax in the file
- Remove the file to fall back to built-in defaults`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

The native runner needs a POSIX shell but none was found.

## Things you can try:
- Install bash or sh
- Switch to the built-in virtual runner:
~~~
$ stackctl setup --runner virtual
~~~`,
	}

	jobNotFoundIssue = &Issue{
		id: JobNotFoundId,
		mdMsg: `
# Job not found!

No job with that id exists in the job state file.

## Things you can try:
- List known jobs:
~~~
$ stackctl job list
~~~
- Check that you are using the same job state path (` + "`jobs.state_path`" + ` config key)`,
	}

	issues = map[Id]*Issue{
		invalidModeIssue.Id():        invalidModeIssue,
		moduleToolNotFoundIssue.Id(): moduleToolNotFoundIssue,
		pythonNotFoundIssue.Id():     pythonNotFoundIssue,
		venvCreateFailedIssue.Id():   venvCreateFailedIssue,
		installFailedIssue.Id():      installFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		shellNotFoundIssue.Id():      shellNotFoundIssue,
		jobNotFoundIssue.Id():        jobNotFoundIssue,
	}
)

// Values returns all cataloged issues in unspecified order.
func Values() []*Issue {
	return maps.Values(issues)
}

// Get returns the cataloged issue for id, or nil when unknown.
func Get(id Id) *Issue {
	return issues[id]
}

// RenderFor renders the catalog entry linked to err, if any. It walks the
// error chain for an ActionableError carrying an issue id and returns the
// rendered guidance, or ok=false when nothing in the chain is cataloged.
func RenderFor(err error, stylePath string) (string, bool) {
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Issue == 0 {
		return "", false
	}
	entry := Get(ae.Issue)
	if entry == nil {
		return "", false
	}
	rendered, renderErr := entry.Render(stylePath)
	if renderErr != nil {
		return "", false
	}
	return rendered, true
}
