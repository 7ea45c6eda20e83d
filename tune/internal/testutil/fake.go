// Package testutil provides shared test infrastructure for the tune packages:
// a scriptable stand-in for the external toolchain and float assertions.
package testutil

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/herdtune/herdtune/tune/runner"
)

// HarnessOutput renders console text in the shape the hardware harness prints.
func HarnessOutput(avg, hi, lo float64) string {
	return fmt.Sprintf("Loading xclbin: air.xclbin\nKernel opcode: 3\n"+
		"Avg NPU matmul time: %sus.\nAvg NPU gflops: 812.4\n\n"+
		"Min NPU matmul time: %sus.\nMax NPU gflops: 900.1\n\n"+
		"Max NPU matmul time: %sus.\nMin NPU gflops: 700.7\n\nPASS!\n",
		strconv.FormatFloat(avg, 'f', -1, 64),
		strconv.FormatFloat(lo, 'f', -1, 64),
		strconv.FormatFloat(hi, 'f', -1, 64))
}

// StepFunc answers one invocation.
type StepFunc func(ctx context.Context, inv runner.Invocation) (runner.Output, error)

// FakeExecutor records invocations and answers them with a StepFunc per step name.
// Steps without a handler succeed with empty output. Safe for concurrent use.
type FakeExecutor struct {
	mu    sync.Mutex
	steps map[string]StepFunc
	calls []runner.Invocation
}

// NewFakeExecutor creates an executor whose steps all succeed silently.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{steps: make(map[string]StepFunc)}
}

// On installs the handler for a step ("compile-kernel", "run", "harness").
func (f *FakeExecutor) On(step string, fn StepFunc) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[step] = fn
	return f
}

// Execute implements runner.Executor.
func (f *FakeExecutor) Execute(ctx context.Context, inv runner.Invocation) (runner.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runner.Invocation{Step: inv.Step, Dir: inv.Dir, Name: inv.Name, Args: slices.Clone(inv.Args)})
	fn := f.steps[inv.Step]
	f.mu.Unlock()
	if fn == nil {
		return runner.Output{}, nil
	}
	return fn(ctx, inv)
}

// Calls returns a copy of every invocation seen so far.
func (f *FakeExecutor) Calls() []runner.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// StepCount returns how many times step was invoked.
func (f *FakeExecutor) StepCount(step string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Step == step {
			n++
		}
	}
	return n
}

// Reply returns a StepFunc that always answers with the given output.
func Reply(stdout, stderr string) StepFunc {
	return func(context.Context, runner.Invocation) (runner.Output, error) {
		return runner.Output{Stdout: stdout, Stderr: stderr}, nil
	}
}

// Fail returns a StepFunc that always fails with err.
func Fail(err error) StepFunc {
	return func(context.Context, runner.Invocation) (runner.Output, error) {
		return runner.Output{Stderr: err.Error()}, err
	}
}

// Hang returns a StepFunc that blocks until ctx is done.
func Hang() StepFunc {
	return func(ctx context.Context, _ runner.Invocation) (runner.Output, error) {
		<-ctx.Done()
		return runner.Output{}, ctx.Err()
	}
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
