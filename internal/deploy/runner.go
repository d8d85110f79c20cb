// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner executes a Command to completion and reports its exit code.
// A non-zero exit is not an error; failing to start the program is.
type Runner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// ExecRunner spawns the command directly, without a shell, and wires its
// standard streams to the given readers and writers.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunnerFunc builds the Runner used by Run. Tests replace it to capture
// commands instead of spawning them.
var NewRunnerFunc = func(stdout, stderr io.Writer) Runner {
	return ExecRunner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return -1, fmt.Errorf("%w: %s", ErrToolNotFound, c.Path)
	}
	return -1, fmt.Errorf("failed to start %s: %w", c.Path, err)
}
