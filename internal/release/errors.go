package release

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type CommandExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandExecutionError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command '%s' failed with exit code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf(
		"command '%s' failed with exit code %d: %s",
		e.Command, e.ExitCode, e.Stderr,
	)
}

func (e *CommandExecutionError) Unwrap() error {
	return e.Err
}

type CloneError struct {
	Repository string
	Primary    error
	Fallback   error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf(
		"unable to clone %s: %v; fallback: %v",
		e.Repository, e.Primary, e.Fallback,
	)
}

func (e *CloneError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

type CheckoutError struct {
	Tag string
	Err error
}

func (e *CheckoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tag %s not found", e.Tag)
	}
	return fmt.Sprintf("unable to check out tag %s: %v", e.Tag, e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

type HealthCheckTimeout struct {
	Project string
	Waited  time.Duration
	Last    []ContainerStatus
	Err     error
}

func (e *HealthCheckTimeout) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "containers of %s not healthy after %s", e.Project, e.Waited)
	if len(e.Last) > 0 {
		states := make([]string, len(e.Last))
		for i, cs := range e.Last {
			states[i] = cs.String()
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(states, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *HealthCheckTimeout) Unwrap() error {
	return e.Err
}

// RollbackError means the repository or containers may be left in a mixed
// state and need manual intervention.
type RollbackError struct {
	Cause error
	Err   error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed: %v (after: %v)", e.Err, e.Cause)
}

func (e *RollbackError) Unwrap() []error {
	return []error{e.Err, e.Cause}
}

// Message returns the text reported to the progress sink for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var rbErr *RollbackError
	if errors.As(err, &rbErr) {
		return fmt.Sprintf(
			"%s. Rollback failed, manual intervention required: %s",
			Message(rbErr.Cause), Message(rbErr.Err),
		)
	}
	var cmdErr *CommandExecutionError
	if errors.As(err, &cmdErr) && cmdErr.Stderr != "" {
		lines := strings.Split(cmdErr.Stderr, "\n")
		return fmt.Sprintf("%s: %s", cmdErr.Command, lines[len(lines)-1])
	}
	return err.Error()
}
