// Package trace records per-candidate sweep decisions for post-run analysis.
// It stores plain data; the sweep driver feeds it.
package trace

import (
	"time"

	"github.com/herdtune/herdtune/tune"
)

// DecisionRecord captures the filter verdict for one generated candidate.
type DecisionRecord struct {
	Config  tune.TileConfig
	Verdict tune.Verdict
}

// EvaluationRecord captures one dispatched candidate and its outcome.
type EvaluationRecord struct {
	Config   tune.TileConfig
	Result   tune.Result
	Duration time.Duration
}
