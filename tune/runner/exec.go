package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Invocation is one external command.
type Invocation struct {
	Step string // "compile-kernel", "run", "harness"
	Dir  string
	Name string
	Args []string
}

func (inv Invocation) String() string {
	return strings.TrimSpace(inv.Name + " " + strings.Join(inv.Args, " "))
}

// Output is the captured text of a finished invocation.
type Output struct {
	Stdout string
	Stderr string
}

// Executor runs one external invocation to completion. Implementations must
// honor ctx cancellation and deadlines.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (Output, error)
}

// ExecError describes a failed external step with its captured output.
type ExecError struct {
	Inv    Invocation
	Output Output
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Inv.Step, e.Inv, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ProcessExecutor runs invocations as child processes.
type ProcessExecutor struct {
	// WaitDelay bounds how long to wait for output pipes after the process is killed.
	WaitDelay time.Duration
}

// NewProcessExecutor creates a ProcessExecutor with a short pipe-drain delay.
func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{WaitDelay: 5 * time.Second}
}

// Execute starts the command, waits for it, and captures stdout and stderr.
// A non-zero exit, a launch failure, or ctx expiry returns an *ExecError.
// Deadline expiry wraps ErrTimeout.
func (p *ProcessExecutor) Execute(ctx context.Context, inv Invocation) (Output, error) {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.WaitDelay = p.WaitDelay
	killProcessGroup(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, &ExecError{Inv: inv, Output: out, Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
		}
		return out, &ExecError{Inv: inv, Output: out, Err: ctxErr}
	}
	if err != nil {
		return out, &ExecError{Inv: inv, Output: out, Err: err}
	}
	return out, nil
}
