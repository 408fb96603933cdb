// Package shell wraps subprocess invocation for tasks: argv flattening,
// single process runs, output capture, and shell-style pipelines.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/vk/taskrig/internal/ctxlog"
)

// Args flattens a mix of values and slices into a single argv of strings.
func Args(parts ...any) []string {
	var argv []string
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			argv = append(argv, v)
		case []string:
			argv = append(argv, v...)
		case []any:
			for _, item := range v {
				argv = append(argv, fmt.Sprint(item))
			}
		default:
			argv = append(argv, fmt.Sprint(v))
		}
	}
	return argv
}

// Command describes one process invocation.
type Command struct {
	// Argv is the program and its arguments. Must not be empty.
	Argv []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the current process environment.
	Env map[string]string

	// Silent suppresses echoing the command line before it runs.
	Silent bool
}

// Run executes the command with stdout and stderr streamed through, and
// returns an error carrying the command line on a non-zero exit.
func Run(ctx context.Context, cmd Command) error {
	proc, err := newProc(ctx, cmd)
	if err != nil {
		return err
	}
	proc.Stdout = os.Stdout
	proc.Stderr = os.Stderr
	if err := proc.Run(); err != nil {
		return fmt.Errorf("command '%s' failed: %w", strings.Join(cmd.Argv, " "), err)
	}
	return nil
}

// Output executes the command and returns its stdout with surrounding
// whitespace trimmed.
func Output(ctx context.Context, cmd Command) (string, error) {
	proc, err := newProc(ctx, cmd)
	if err != nil {
		return "", err
	}
	var stdout bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = os.Stderr
	if err := proc.Run(); err != nil {
		return "", fmt.Errorf("command '%s' failed: %w", strings.Join(cmd.Argv, " "), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RunPiped chains the commands stdin-to-stdout like a shell pipeline. The
// pipeline fails if its final process exits non-zero, matching shell
// semantics without pipefail.
func RunPiped(ctx context.Context, cmds ...Command) error {
	if len(cmds) == 0 {
		return errors.New("no commands to run")
	}
	if len(cmds) == 1 {
		return Run(ctx, cmds[0])
	}

	logger := ctxlog.FromContext(ctx)
	rendered := make([]string, len(cmds))
	procs := make([]*exec.Cmd, len(cmds))
	for i, cmd := range cmds {
		if len(cmd.Argv) == 0 {
			return errors.New("empty argv in pipeline")
		}
		rendered[i] = strings.Join(cmd.Argv, " ")
		procs[i] = exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
		procs[i].Dir = cmd.Dir
		procs[i].Env = mergedEnv(cmd.Env)
		procs[i].Stderr = os.Stderr
	}
	pipeline := strings.Join(rendered, " | ")
	if !cmds[0].Silent {
		logger.Info("Executing pipeline.", "command", pipeline)
	}

	for i := 0; i < len(procs)-1; i++ {
		pipe, err := procs[i].StdoutPipe()
		if err != nil {
			return fmt.Errorf("pipe after '%s': %w", rendered[i], err)
		}
		procs[i+1].Stdin = pipe
	}
	last := procs[len(procs)-1]
	last.Stdout = os.Stdout

	for i, proc := range procs {
		if err := proc.Start(); err != nil {
			return fmt.Errorf("start '%s': %w", rendered[i], err)
		}
	}
	var failed error
	for _, proc := range procs[:len(procs)-1] {
		_ = proc.Wait()
	}
	if err := last.Wait(); err != nil {
		failed = fmt.Errorf("pipeline '%s' failed: %w", pipeline, err)
	}
	return failed
}

func newProc(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	if len(cmd.Argv) == 0 {
		return nil, errors.New("empty argv")
	}
	if !cmd.Silent {
		ctxlog.FromContext(ctx).Info("Executing command.", "command", strings.Join(cmd.Argv, " "))
	}
	proc := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	proc.Dir = cmd.Dir
	proc.Env = mergedEnv(cmd.Env)
	return proc, nil
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for key, value := range extra {
		env = append(env, key+"="+value)
	}
	return env
}
