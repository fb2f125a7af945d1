// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"stackctl/internal/config"
	"stackctl/internal/issue"
	"stackctl/internal/job"
	"stackctl/internal/runtime"

	"github.com/spf13/cobra"
)

var (
	jobName         string
	jobDir          string
	jobEnvVars      []string
	jobTimeout      time.Duration
	jobRuntimeLimit time.Duration
	jobRetries      int
	jobBackoff      time.Duration
	jobJitter       time.Duration

	jobCmd = &cobra.Command{
		Use:   "job",
		Short: "Run and inspect managed jobs",
		Long: `Run and inspect managed jobs.

Jobs run as local subprocesses with their stdout/stderr captured to
per-job log files. Every state transition is persisted, so 'job list'
and 'job status' work across invocations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	jobRunCmd = &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Submit a job and wait for it to finish",
		Example: `  stackctl job run -- python train.py
  stackctl job run --name nightly --retries 3 --backoff 2s -- python train.py
  stackctl job run --timeout 1h -- sh -c 'make bench'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runJobRun,
	}

	jobListState string

	jobListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all known jobs, newest first",
		RunE:  runJobList,
	}

	jobStatusCmd = &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one job's full record",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobStatus,
	}

	jobCancelCmd = &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Stop a pending or running job",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobCancel,
	}
)

func init() {
	jobRunCmd.Flags().StringVar(&jobName, "name", "", "job name; duplicate names are rejected while one is in flight")
	jobRunCmd.Flags().StringVar(&jobDir, "dir", "", "working directory for the job process")
	jobRunCmd.Flags().StringArrayVarP(&jobEnvVars, "env", "e", nil, "KEY=VALUE environment entry for the job (repeatable)")
	jobRunCmd.Flags().DurationVar(&jobTimeout, "timeout", 0, "per-attempt timeout (0 = none)")
	jobRunCmd.Flags().DurationVar(&jobRuntimeLimit, "runtime-limit", 0, "total wall-time budget across attempts (0 = none)")
	jobRunCmd.Flags().IntVar(&jobRetries, "retries", 0, "retries after a failed attempt")
	jobRunCmd.Flags().DurationVar(&jobBackoff, "backoff", 2*time.Second, "exponential backoff base between retries")
	jobRunCmd.Flags().DurationVar(&jobJitter, "jitter", 0, "maximum random extra delay added to each backoff")
	jobListCmd.Flags().StringVar(&jobListState, "state", "", "only show jobs in this state (PENDING, RUNNING, SUCCEEDED, FAILED, CANCELLED)")

	jobCmd.AddCommand(jobRunCmd)
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobCancelCmd)
}

func runJobRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	env, err := parseEnvVars(jobEnvVars)
	if err != nil {
		return err
	}

	manager, err := job.NewManager(
		job.NewLocalBackend(),
		job.NewStore(cfg.Jobs.StatePath),
		cfg.Jobs.LogRoot,
		cfg.Jobs.MaxConcurrent,
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	spec := job.Spec{
		Argv:         args,
		Env:          env,
		Dir:          jobDir,
		Timeout:      jobTimeout,
		RuntimeLimit: jobRuntimeLimit,
		Name:         jobName,
		Retry: job.RetryPolicy{
			MaxRetries: jobRetries,
			Backoff:    jobBackoff,
			Jitter:     jobJitter,
		},
	}

	submitted, err := manager.Submit(cmd.Context(), spec)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("Submitted ")+CmdStyle.Render(submitted.ID))

	final, err := manager.Wait(cmd.Context(), submitted.ID)
	if err != nil {
		return err
	}

	printJob(cmd, final)
	if final.State != job.StateSucceeded {
		code := runtime.ExitCode(1)
		if final.ExitCode != nil && *final.ExitCode > 0 {
			code = runtime.ExitCode(*final.ExitCode)
		}
		return &ExitError{Code: code}
	}
	return nil
}

func runJobList(cmd *cobra.Command, _ []string) error {
	jobs, err := loadJobs()
	if err != nil {
		return err
	}

	if jobListState != "" {
		want, err := job.ParseState(jobListState)
		if err != nil {
			return err
		}
		filtered := jobs[:0]
		for _, j := range jobs {
			if j.State == want {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}

	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("No jobs recorded."))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tSTATE\tATTEMPTS\tCREATED\tDURATION")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			j.ID,
			stateStyle(j.State.String()).Render(j.State.String()),
			j.Attempts,
			j.CreatedAt.Local().Format(time.DateTime),
			j.Duration().Round(time.Second),
		)
	}
	return w.Flush()
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	j, err := findJob(args[0])
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			rendered, _ := issue.Get(issue.JobNotFoundId).Render("dark")
			fmt.Fprint(cmd.ErrOrStderr(), rendered)
		}
		return err
	}
	printJob(cmd, j)
	return nil
}

// runJobCancel signals the job's recorded process directly instead of going
// through a Manager; the managing process may no longer exist.
func runJobCancel(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store := job.NewStore(cfg.Jobs.StatePath)
	jobs, err := store.Load()
	if err != nil {
		return err
	}

	j, ok := jobs[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", job.ErrJobNotFound, args[0])
	}
	if j.State.IsTerminal() {
		return fmt.Errorf("job %s already finished with state %s", j.ID, j.State)
	}

	if j.PID > 0 {
		if proc, perr := os.FindProcess(j.PID); perr == nil {
			_ = proc.Signal(syscall.SIGTERM)
		}
	}

	j.State = job.StateCanceled
	now := time.Now()
	j.EndedAt = &now
	j.Error = "canceled by user"
	if err := store.Save(jobs); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Canceled ")+CmdStyle.Render(j.ID))
	return nil
}

// loadJobs reads the persisted job table sorted newest first, without
// standing up a Manager (which would repair orphaned records).
func loadJobs() ([]*job.Job, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	table, err := job.NewStore(cfg.Jobs.StatePath).Load()
	if err != nil {
		return nil, err
	}
	jobs := make([]*job.Job, 0, len(table))
	for _, j := range table {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
		}
		return jobs[i].ID < jobs[k].ID
	})
	return jobs, nil
}

func findJob(id string) (*job.Job, error) {
	jobs, err := loadJobs()
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", job.ErrJobNotFound, id)
}

func printJob(cmd *cobra.Command, j *job.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render(j.ID))
	fmt.Fprintf(out, "  State:    %s\n", stateStyle(j.State.String()).Render(j.State.String()))
	fmt.Fprintf(out, "  Command:  %v\n", j.Spec.Argv)
	fmt.Fprintf(out, "  Attempts: %d\n", j.Attempts)
	fmt.Fprintf(out, "  Created:  %s\n", j.CreatedAt.Local().Format(time.DateTime))
	if j.StartedAt != nil {
		fmt.Fprintf(out, "  Duration: %s\n", j.Duration().Round(time.Millisecond))
	}
	if j.ExitCode != nil {
		fmt.Fprintf(out, "  Exit:     %d\n", *j.ExitCode)
	}
	if j.Error != "" {
		fmt.Fprintf(out, "  Error:    %s\n", ErrorStyle.Render(j.Error))
	}
	if j.StdoutPath != "" {
		fmt.Fprintf(out, "  Stdout:   %s\n", CmdStyle.Render(j.StdoutPath))
	}
	if j.StderrPath != "" {
		fmt.Fprintf(out, "  Stderr:   %s\n", CmdStyle.Render(j.StderrPath))
	}
}
