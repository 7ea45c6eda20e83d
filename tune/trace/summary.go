package trace

import "github.com/herdtune/herdtune/tune"

// TraceSummary aggregates statistics from a SweepTrace.
type TraceSummary struct {
	Generated  int
	Verdicts   map[tune.Verdict]int // verdict → candidate count
	Dispatched int
	Succeeded  int // measured and passed
	Unverified int // measured, correctness check not passed
	Failed     int // orchestration failure sentinel
	Best       *EvaluationRecord
}

// Summarize computes aggregate statistics from a SweepTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SweepTrace) *TraceSummary {
	summary := &TraceSummary{
		Verdicts: make(map[tune.Verdict]int),
	}
	if st == nil {
		return summary
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	for v, n := range st.counts {
		summary.Verdicts[v] = n
		summary.Generated += n
	}

	summary.Dispatched = len(st.Evaluations)
	for i, e := range st.Evaluations {
		switch {
		case e.Result.IsFailure():
			summary.Failed++
			continue
		case e.Result.Passed:
			summary.Succeeded++
		default:
			summary.Unverified++
		}
		if e.Result.LatencyAvg <= 0 {
			continue
		}
		if summary.Best == nil || e.Result.LatencyAvg < summary.Best.Result.LatencyAvg {
			best := st.Evaluations[i]
			summary.Best = &best
		}
	}
	return summary
}
