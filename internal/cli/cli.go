// Package cli defines the cobra command tree and the process exit contract:
// 0 on success, 2 on usage or configuration errors, 1 on execution failure.
// Ownership cleanup always runs after a batch, successful or not.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vk/taskrig/internal/app"
	"github.com/vk/taskrig/internal/report"
)

// ExitError is a custom error type that carries a specific exit code to main.
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string { return e.Err.Error() }

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ExitError) Unwrap() error { return e.Err }

// New builds the root command with all subcommands attached. All output goes
// to outW so tests can capture it.
func New(outW io.Writer) *cobra.Command {
	var flags struct {
		projectRoot   string
		containerRoot string
		userID        string
		groupID       string
		pipeline      string
		logLevel      string
		logFormat     string
		taskTimeout   time.Duration
	}

	newConfig := func() (*app.Config, error) {
		cfg, err := app.NewConfig(app.Config{
			ProjectRoot:   flags.projectRoot,
			ContainerRoot: flags.containerRoot,
			UserID:        flags.userID,
			GroupID:       flags.groupID,
			PipelinePath:  flags.pipeline,
			LogLevel:      flags.logLevel,
			LogFormat:     flags.logFormat,
			TaskTimeout:   flags.taskTimeout,
		})
		if err != nil {
			return nil, &ExitError{Code: 2, Err: err}
		}
		return cfg, nil
	}
	newApp := func() (*app.App, error) {
		cfg, err := newConfig()
		if err != nil {
			return nil, err
		}
		a, err := app.NewApp(outW, cfg)
		if err != nil {
			return nil, &ExitError{Code: 2, Err: err}
		}
		return a, nil
	}

	root := &cobra.Command{
		Use:   "taskrig",
		Short: "Run build and CI tasks with their prerequisites resolved",
		Long: `Taskrig expands the requested tasks into the full set of prerequisite
tasks, orders them so every prerequisite runs before its dependents, and
executes each exactly once, stopping at the first failure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.projectRoot, "project-root", "", "Path to the project root on the local machine.")
	pf.StringVar(&flags.containerRoot, "container-root", "", "Path the project is mounted at inside containers. Defaults to the project root.")
	pf.StringVar(&flags.userID, "user-id", "", "Numeric user ID that should own project files after a run.")
	pf.StringVar(&flags.groupID, "group-id", "", "Numeric group ID that should own project files after a run.")
	pf.StringVar(&flags.pipeline, "pipeline", "", "Path to an HCL pipeline file with user-defined tasks.")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Logging level: 'debug', 'info', 'warn', or 'error'.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log output format: 'text' or 'json'.")
	pf.DurationVar(&flags.taskTimeout, "task-timeout", 0, "Per-task time limit. 0 disables the limit.")

	runCmd := &cobra.Command{
		Use:   "run TASK...",
		Short: "Execute tasks and their prerequisites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			runErr := a.Run(cmd.Context(), args)
			// Cleanup must run even when the batch failed.
			a.FixOwnership(cmd.Context())
			return runErr
		},
	}

	planCmd := &cobra.Command{
		Use:   "plan TASK...",
		Short: "Print the execution order without running anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			labels, err := a.Plan(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(outW, "Will execute the following tasks:")
			for _, label := range labels {
				fmt.Fprintf(outW, "  - %s\n", label)
			}
			return nil
		},
	}

	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "List registered tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			for _, verb := range a.Registry().Verbs() {
				fmt.Fprintln(outW, verb)
			}
			return nil
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print the last run report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newConfig()
			if err != nil {
				return err
			}
			rep, err := report.Load(report.Path(cfg.ProjectRoot))
			if err != nil {
				return err
			}
			fmt.Fprintf(outW, "Run %s (%d tasks):\n", rep.RunID, len(rep.Entries))
			for _, entry := range rep.Entries {
				fmt.Fprintf(outW, "  %-40s %s\n", entry.Task, entry.Duration)
			}
			return nil
		},
	}

	root.AddCommand(runCmd, planCmd, tasksCmd, reportCmd)
	return root
}
