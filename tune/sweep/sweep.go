// Package sweep drives a full tiling sweep: generate candidates, filter them against
// the hardware constraints and a prior ledger, evaluate the survivors, and append
// each result to the output ledger as soon as it is known.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/herdtune/herdtune/tune"
	"github.com/herdtune/herdtune/tune/ledger"
	"github.com/herdtune/herdtune/tune/trace"
)

// Evaluator measures one tile config. It must not return until the external work
// for that config is finished, and must report failures through the result.
type Evaluator interface {
	Evaluate(ctx context.Context, cfg tune.TileConfig) tune.Result
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, cfg tune.TileConfig) tune.Result

// Evaluate calls f(ctx, cfg).
func (f EvaluatorFunc) Evaluate(ctx context.Context, cfg tune.TileConfig) tune.Result {
	return f(ctx, cfg)
}

// Config groups the inputs of one sweep run.
type Config struct {
	Sweep      tune.SweepConfig
	LedgerPath string // prior results; empty or missing means none
	OutputPath string // may equal LedgerPath to resume in place
	WithPassed bool   // write the passed column
	Workers    int    // concurrent evaluations; values below 1 mean 1
}

// Stats reports what a run did.
type Stats struct {
	Generated   int
	Dispatched  int
	Recorded    int
	Interrupted bool
}

// Driver runs sweeps.
type Driver struct {
	cfg   Config
	eval  Evaluator
	trace *trace.SweepTrace
}

// New creates a Driver. tr may be nil.
func New(cfg Config, eval Evaluator, tr *trace.SweepTrace) *Driver {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Driver{cfg: cfg, eval: eval, trace: tr}
}

// aheadPerWorker bounds how many candidates dispatch may run ahead of the oldest
// one not yet committed, per worker.
const aheadPerWorker = 4

type outcome struct {
	seq      int
	rec      ledger.Record
	duration time.Duration
	// dropped outcomes are never written: the candidate was skipped after
	// cancellation, or its evaluation was cut short by it.
	dropped bool
}

// Run executes the sweep. Until ctx is cancelled, rows are committed in candidate
// order regardless of the worker count. Cancelling ctx stops dispatch; every evaluation that finishes is
// still recorded, out of order if needed, and only failures caused by the
// cancellation itself are dropped so the next run regenerates them. Only ledger
// I/O failures return an error.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	sc := d.cfg.Sweep

	prior, err := ledger.Load(d.cfg.LedgerPath)
	if err != nil {
		return stats, fmt.Errorf("loading prior ledger: %w", err)
	}

	out, err := d.openOutput()
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			logrus.Errorf("Closing %s: %v", out.Path(), cerr)
		}
	}()

	ctx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	// one token per dispatched candidate, returned when its outcome leaves the
	// reorder buffer
	window := make(chan struct{}, d.cfg.Workers*aheadPerWorker)
	results := make(chan outcome)
	committed := make(chan error, 1)
	go func() {
		n, err := d.commit(ctx, out, results, window, stop)
		stats.Recorded = n
		committed <- err
	}()

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for cfg := range tune.CandidateStream(sc) {
		if ctx.Err() != nil {
			break
		}
		stats.Generated++
		verdict := tune.Check(cfg, sc.Format, sc.Topology, prior)
		d.trace.RecordDecision(trace.DecisionRecord{Config: cfg, Verdict: verdict})
		if verdict != tune.Admitted {
			logrus.Debugf("Skip %s: %s", cfg, verdict)
			continue
		}
		select {
		case window <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		seq := stats.Dispatched
		stats.Dispatched++
		g.Go(func() error {
			o := outcome{seq: seq, rec: ledger.Record{Config: cfg}}
			if ctx.Err() != nil {
				o.dropped = true
				results <- o
				return nil
			}
			logrus.Infof("Try %s", cfg)
			start := time.Now()
			o.rec.Result = d.eval.Evaluate(ctx, cfg)
			o.duration = time.Since(start)
			o.dropped = o.rec.Result.IsFailure() && ctx.Err() != nil
			results <- o
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	commitErr := <-committed

	if commitErr != nil {
		return stats, commitErr
	}
	if ctx.Err() != nil {
		stats.Interrupted = true
		logrus.Warnf("Sweep interrupted: %v", context.Cause(ctx))
	}
	return stats, nil
}

// commit appends outcomes in sequence order. Once ctx is done, ordering is given
// up: buffered outcomes are flushed and later ones are appended as they arrive.
// After an append fails nothing more is written.
func (d *Driver) commit(ctx context.Context, out *ledger.Appender, results <-chan outcome,
	window <-chan struct{}, stop context.CancelCauseFunc) (int, error) {
	pending := make(map[int]outcome)
	next, recorded := 0, 0
	var appendErr error

	record := func(o outcome) {
		<-window
		if appendErr != nil || o.dropped {
			return
		}
		if err := out.Append(o.rec); err != nil {
			appendErr = fmt.Errorf("recording result: %w", err)
			stop(appendErr)
			return
		}
		recorded++
		d.trace.RecordEvaluation(trace.EvaluationRecord{Config: o.rec.Config, Result: o.rec.Result, Duration: o.duration})
		logOutcome(o)
	}
	flush := func() {
		for _, seq := range slices.Sorted(maps.Keys(pending)) {
			record(pending[seq])
			delete(pending, seq)
		}
	}

	for o := range results {
		pending[o.seq] = o
		if ctx.Err() != nil {
			flush()
			continue
		}
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			record(p)
		}
	}
	// only a cancelled run can leave gaps behind
	flush()
	return recorded, appendErr
}

func logOutcome(o outcome) {
	r := o.rec.Result
	entry := logrus.WithFields(logrus.Fields{
		"latency_avg": r.LatencyAvg,
		"latency_max": r.LatencyMax,
		"latency_min": r.LatencyMin,
		"elapsed":     o.duration.Round(time.Millisecond),
	})
	switch {
	case r.IsFailure():
		entry.Warnf("Failed %s", o.rec.Config)
	case !r.Passed:
		entry.Warnf("Measured but not passed %s", o.rec.Config)
	default:
		entry.Infof("Done %s", o.rec.Config)
	}
}

// openOutput truncates a fresh output file, or appends when resuming in place.
func (d *Driver) openOutput() (*ledger.Appender, error) {
	if samePath(d.cfg.LedgerPath, d.cfg.OutputPath) {
		logrus.Infof("Resuming in place: appending to %s", d.cfg.OutputPath)
		return ledger.OpenAppend(d.cfg.OutputPath, d.cfg.WithPassed)
	}
	return ledger.Create(d.cfg.OutputPath, d.cfg.WithPassed)
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ai, aerr := os.Stat(a)
	bi, berr := os.Stat(b)
	if aerr == nil && berr == nil {
		return os.SameFile(ai, bi)
	}
	if !errors.Is(aerr, os.ErrNotExist) && aerr != nil {
		return false
	}
	absA, err1 := filepath.Abs(a)
	absB, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && absA == absB
}
