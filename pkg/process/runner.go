package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

//go:generate mockgen -destination=../mocks/mock_runner.go -package=mocks github.com/cherry/cherry/pkg/process Runner

// Runner runs an external tool. The inputs are written to its stdin in order
// and its stdout is returned. Failures are *RunError values.
type Runner interface {
	Run(ctx context.Context, command string, args []string, inputs [][]byte) ([]byte, error)
}

// ExecRunner runs tools as child processes
type ExecRunner struct {
	// Dir is the working directory; empty means the current one
	Dir string
}

// NewExecRunner creates a runner using the current working directory
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes command with args and returns its stdout
func (r *ExecRunner) Run(ctx context.Context, command string, args []string, inputs [][]byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = r.Dir

	readers := make([]io.Reader, 0, len(inputs))
	for _, in := range inputs {
		readers = append(readers, bytes.NewReader(in))
	}
	cmd.Stdin = io.MultiReader(readers...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		runErr := &RunError{
			Command:  command,
			Args:     args,
			ExitCode: -1,
			Stderr:   stderr.Bytes(),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr.ExitCode = exitErr.ExitCode()
		}
		return nil, runErr
	}
	return stdout.Bytes(), nil
}
