package process

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCollaboratorFailure is matched by every failed external tool run
var ErrCollaboratorFailure = errors.New("external tool failed")

// RunError describes an external tool that exited non-zero or could not be launched.
// Stderr is the tool's diagnostic output, unmodified.
type RunError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   []byte
	Err      error
}

func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString(strings.Join(append([]string{e.Command}, e.Args...), " "))
	if e.ExitCode < 0 {
		fmt.Fprintf(&b, ": could not be launched: %v", e.Err)
	} else {
		fmt.Fprintf(&b, ": exited with code %d", e.ExitCode)
	}
	if len(e.Stderr) > 0 {
		b.WriteString("\n")
		b.Write(e.Stderr)
	}
	return b.String()
}

// Is reports true for ErrCollaboratorFailure
func (e *RunError) Is(target error) bool {
	return target == ErrCollaboratorFailure
}

func (e *RunError) Unwrap() error {
	return e.Err
}
