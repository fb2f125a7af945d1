// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"stackctl/internal/config"
	"stackctl/internal/issue"
	"stackctl/internal/runtime"
	"stackctl/internal/setup"

	"github.com/spf13/cobra"
)

var (
	setupDryRun   bool
	setupRunner   string
	setupDir      string
	setupEnvFiles []string
	setupEnvVars  []string

	setupCmd = &cobra.Command{
		Use:   "setup [local|scc]",
		Short: "Prepare the deployment environment for the given mode",
		Long: `Prepare the deployment environment for the given mode.

Modes:
  local   Install the workstation requirements file and nothing else.
  scc     Load the cluster's system modules (Python and CUDA), create
          the virtual environment if it does not exist, activate it,
          install the pinned GPU stack, then the cluster requirements.

With no mode argument, scc is assumed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSetup,
	}
)

func init() {
	setupCmd.Flags().BoolVar(&setupDryRun, "dry-run", false, "print the plan without executing it")
	setupCmd.Flags().StringVar(&setupRunner, "runner", "", "execution runner: native or virtual (default from config)")
	setupCmd.Flags().StringVarP(&setupDir, "directory", "C", "", "deployment root to resolve paths against (default: current directory)")
	setupCmd.Flags().StringArrayVar(&setupEnvFiles, "env-file", nil, "dotenv file to layer over the host environment (repeatable)")
	setupCmd.Flags().StringArrayVarP(&setupEnvVars, "env", "e", nil, "KEY=VALUE override for the step environment (repeatable)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	mode, err := setup.ParseMode(arg)
	if err != nil {
		stderr := cmd.ErrOrStderr()
		rendered, _ := issue.Get(issue.InvalidModeId).Render("dark")
		fmt.Fprint(stderr, rendered)
		fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		fmt.Fprintf(stderr, "Usage: %s setup [%s|%s]\n", rootCmd.Name(), setup.ModeLocal, setup.ModeCluster)
		return &ExitError{Code: 1}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	plan, err := setup.NewPlanner(cfg).Plan(mode)
	if err != nil {
		return err
	}

	if setupDryRun {
		fmt.Fprint(cmd.OutOrStdout(), plan.Describe())
		return nil
	}

	runner, err := resolveRunner(cfg)
	if err != nil {
		return err
	}

	envVars, err := parseEnvVars(setupEnvVars)
	if err != nil {
		return err
	}

	executor := setup.NewExecutor(runner)
	executor.EnvBuilder = &runtime.DefaultEnvBuilder{
		EnvFiles: setupEnvFiles,
		EnvVars:  envVars,
	}
	executor.Stdout = cmd.OutOrStdout()
	executor.Stderr = cmd.ErrOrStderr()
	executor.Stdin = cmd.InOrStdin()
	executor.WorkDir = setupDir

	result := executor.Execute(cmd.Context(), plan)
	if result.Error != nil || !result.ExitCode.IsSuccess() {
		if result.Error != nil {
			stderr := cmd.ErrOrStderr()
			if rendered, ok := issue.RenderFor(result.Error, "dark"); ok {
				fmt.Fprint(stderr, rendered)
			}
			fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(result.Error, verbose))
		}
		code := result.ExitCode
		if code.IsSuccess() {
			code = 1
		}
		return &ExitError{Code: code}
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Environment ready (%s mode)", mode)))
	return nil
}

// resolveRunner picks the runner from the --runner flag or the config and
// looks it up in the registry.
func resolveRunner(cfg *config.Config) (runtime.Runner, error) {
	name := config.RunnerMode(setupRunner)
	if setupRunner == "" {
		name = cfg.Runner
	}
	if ok, errs := name.IsValid(); !ok {
		return nil, errs[0]
	}
	return runtime.BuildRegistry().Get(runtime.RunnerName(name))
}

// parseEnvVars validates --env flags into a map.
func parseEnvVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.New("--env values must be KEY=VALUE pairs")
		}
		env[key] = value
	}
	return env, nil
}
