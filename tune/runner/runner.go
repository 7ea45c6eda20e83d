// Package runner drives the external compile, run and hardware-test steps for one
// tile config and turns their console output into a tune.Result.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/herdtune/herdtune/tune"
)

// diagnosticTail is how much of each captured stream is logged on failure.
const diagnosticTail = 4096

// Runner evaluates tile configs on the accelerator. It keeps no per-config state;
// every Evaluate call performs an independent external run.
type Runner struct {
	tc      Toolchain
	topo    tune.HerdTopology
	mode    Mode
	exec    Executor
	harness HarnessFormat
}

// New creates a Runner. A nil executor runs real child processes.
func New(tc Toolchain, topo tune.HerdTopology, mode Mode, exec Executor) *Runner {
	if exec == nil {
		exec = NewProcessExecutor()
	}
	return &Runner{tc: tc, topo: topo, mode: mode, exec: exec, harness: HarnessV1}
}

// Mode returns the compile mode passed to the run step.
func (r *Runner) Mode() Mode { return r.mode }

// Evaluate compiles, runs and measures cfg. It never returns an error: any failure
// is logged with the captured output and reported as tune.FailedResult().
func (r *Runner) Evaluate(ctx context.Context, cfg tune.TileConfig) tune.Result {
	res, err := r.evaluate(ctx, cfg)
	if err != nil {
		logFailure(cfg, err)
		return tune.FailedResult()
	}
	return res
}

func (r *Runner) evaluate(ctx context.Context, cfg tune.TileConfig) (tune.Result, error) {
	if _, err := r.step(ctx, r.tc.KernelBuild(cfg)); err != nil {
		return tune.Result{}, err
	}

	runOut, err := r.step(ctx, r.tc.ProgramRun(cfg, r.topo, r.mode))
	if err != nil {
		return tune.Result{}, err
	}

	harnessInv := r.tc.HarnessRun(cfg)
	harnessOut, err := r.step(ctx, harnessInv)
	if err != nil {
		return tune.Result{}, err
	}

	lat, err := r.harness.Parse(harnessOut.Stdout)
	if err != nil {
		return tune.Result{}, &ExecError{Inv: harnessInv, Output: harnessOut, Err: err}
	}

	passed := true
	if r.mode == CompileAndRun {
		passed = strings.Contains(runOut.Stdout, r.tc.PassMarker) || strings.Contains(runOut.Stderr, r.tc.PassMarker)
	}
	return tune.Result{LatencyAvg: lat.Avg, LatencyMax: lat.Max, LatencyMin: lat.Min, Passed: passed}, nil
}

// step runs one invocation under the per-step timeout.
func (r *Runner) step(ctx context.Context, inv Invocation) (Output, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.tc.StepTimeout)
	defer cancel()
	logrus.Debugf("[%s] %s (dir=%s)", inv.Step, inv, inv.Dir)
	out, err := r.exec.Execute(stepCtx, inv)
	if err != nil {
		var ee *ExecError
		if !errors.As(err, &ee) {
			err = &ExecError{Inv: inv, Output: out, Err: err}
		}
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = &ExecError{Inv: inv, Output: out, Err: fmt.Errorf("%w after %v: %v", ErrTimeout, r.tc.StepTimeout, err)}
		}
		return out, err
	}
	return out, nil
}

func logFailure(cfg tune.TileConfig, err error) {
	fields := logrus.Fields{"config": cfg.String()}
	var ee *ExecError
	if errors.As(err, &ee) {
		fields["step"] = ee.Inv.Step
		fields["command"] = ee.Inv.String()
		if s := tail(ee.Output.Stdout); s != "" {
			fields["stdout"] = s
		}
		if s := tail(ee.Output.Stderr); s != "" {
			fields["stderr"] = s
		}
	}
	logrus.WithFields(fields).Warnf("Evaluation failed: %v", err)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > diagnosticTail {
		return "..." + s[len(s)-diagnosticTail:]
	}
	return s
}
