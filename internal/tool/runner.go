// Package tool provides the single subprocess capability every pipeline
// step uses to reach an external program. Keeping it behind one interface
// lets tests substitute a fake invoker for the whole pipeline.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command names a program invocation: the program and its fixed leading
// arguments. Steps append call-specific arguments to Args.
type Command struct {
	Program string
	Args    []string
}

// ParseCommand splits a whitespace-separated command string, e.g.
// "systemctl restart coredns".
func ParseCommand(s string) Command {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Program: fields[0], Args: fields[1:]}
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}

// Result captures a finished subprocess.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner invokes an external program and waits for it to exit.
// env entries are KEY=VALUE pairs appended to the process environment.
// A non-zero exit is reported as a *CommandError.
type Runner interface {
	Run(ctx context.Context, program string, args []string, env []string) (Result, error)
}

// CommandError is a non-zero exit from an external program, carrying the
// program's trimmed stderr.
type CommandError struct {
	Program  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: exit status %d", e.Program, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Program, e.ExitCode, e.Stderr)
}

// ExecRunner runs programs via os/exec, synchronously.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, program string, args []string, env []string) (Result, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &CommandError{
				Program:  program,
				ExitCode: res.ExitCode,
				Stderr:   strings.TrimSpace(res.Stderr),
			}
		}
		return res, fmt.Errorf("run %s: %w", program, err)
	}

	return res, nil
}

// Output runs cmd with extra args and env and returns its stdout trimmed of
// surrounding whitespace, for calls whose stdout is meaningful (TLSA value,
// key file name, DS record).
func Output(ctx context.Context, r Runner, cmd Command, extraArgs []string, env []string) (string, error) {
	res, err := r.Run(ctx, cmd.Program, append(append([]string{}, cmd.Args...), extraArgs...), env)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}
