package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/herdtune/herdtune/tune"
)

// ForWorker derives the toolchain for worker i of a parallel sweep. Builds and
// artifacts go to worker-<i> subdirectories of the kernel and work directories;
// relative script and harness paths are pinned to the original work directory.
func (tc Toolchain) ForWorker(i int) (Toolchain, error) {
	out := tc
	sub := fmt.Sprintf("worker-%d", i)
	out.KernelDir = filepath.Join(tc.KernelDir, sub)
	out.WorkDir = filepath.Join(tc.WorkDir, sub)
	for _, p := range []*string{&out.RunScript, &out.Harness} {
		if filepath.IsAbs(*p) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(tc.WorkDir, *p))
		if err != nil {
			return Toolchain{}, fmt.Errorf("resolving %s: %w", *p, err)
		}
		*p = abs
	}
	return out, nil
}

// CheckDirs reports a missing kernel or work directory.
func (tc Toolchain) CheckDirs() error {
	for _, dir := range []string{tc.KernelDir, tc.WorkDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("toolchain directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("toolchain directory %s is not a directory", dir)
		}
	}
	return nil
}

// Pool lends each evaluation a Runner no other evaluation is using, so the external
// toolchain of one worker never sees two configs at once.
type Pool struct {
	idle chan *Runner
}

// NewPool creates a pool over the given runners.
func NewPool(runners ...*Runner) *Pool {
	idle := make(chan *Runner, len(runners))
	for _, r := range runners {
		idle <- r
	}
	return &Pool{idle: idle}
}

// Size is the number of runners in the pool.
func (p *Pool) Size() int { return cap(p.idle) }

// Evaluate waits for an idle runner and evaluates cfg on it. If ctx ends first the
// failure sentinel is returned.
func (p *Pool) Evaluate(ctx context.Context, cfg tune.TileConfig) tune.Result {
	select {
	case r := <-p.idle:
		defer func() { p.idle <- r }()
		return r.Evaluate(ctx, cfg)
	case <-ctx.Done():
		return tune.FailedResult()
	}
}
