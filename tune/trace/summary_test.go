package trace

import (
	"sync"
	"testing"

	"github.com/herdtune/herdtune/tune"
)

func key(tm int) tune.TileConfig {
	return tune.TileConfig{M: 256, K: 256, N: 256, TileM: tm, TileKMid: 64, TileKLocal: 32, TileN: 32}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSweepTrace(TraceLevelDecisions)

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.Generated != 0 || summary.Dispatched != 0 {
		t.Errorf("expected zero counts, got generated=%d dispatched=%d", summary.Generated, summary.Dispatched)
	}
	if summary.Best != nil {
		t.Error("expected no best config")
	}
	if len(summary.Verdicts) != 0 {
		t.Error("expected empty verdict distribution")
	}
}

func TestSummarize_NilTrace_Safe(t *testing.T) {
	var st *SweepTrace
	st.RecordDecision(DecisionRecord{Verdict: tune.Admitted})
	st.RecordEvaluation(EvaluationRecord{})
	if s := Summarize(st); s.Generated != 0 {
		t.Errorf("expected 0 generated, got %d", s.Generated)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with mixed verdicts and outcomes
	st := NewSweepTrace(TraceLevelDecisions)
	st.RecordDecision(DecisionRecord{Config: key(16), Verdict: tune.RejectAlignment})
	st.RecordDecision(DecisionRecord{Config: key(32), Verdict: tune.Admitted})
	st.RecordDecision(DecisionRecord{Config: key(64), Verdict: tune.Admitted})
	st.RecordDecision(DecisionRecord{Config: key(128), Verdict: tune.Admitted})
	st.RecordDecision(DecisionRecord{Config: key(8), Verdict: tune.RejectSolved})
	st.RecordEvaluation(EvaluationRecord{Config: key(32), Result: tune.Result{LatencyAvg: 50, LatencyMax: 60, LatencyMin: 40, Passed: true}})
	st.RecordEvaluation(EvaluationRecord{Config: key(64), Result: tune.FailedResult()})
	st.RecordEvaluation(EvaluationRecord{Config: key(128), Result: tune.Result{LatencyAvg: 20, LatencyMax: 30, LatencyMin: 10}})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.Generated != 5 {
		t.Errorf("expected 5 generated, got %d", summary.Generated)
	}
	if summary.Verdicts[tune.Admitted] != 3 || summary.Verdicts[tune.RejectAlignment] != 1 || summary.Verdicts[tune.RejectSolved] != 1 {
		t.Errorf("unexpected verdicts %v", summary.Verdicts)
	}
	if summary.Dispatched != 3 || summary.Succeeded != 1 || summary.Failed != 1 || summary.Unverified != 1 {
		t.Errorf("unexpected outcomes %+v", summary)
	}
	// AND the fastest measured config is reported even if unverified
	if summary.Best == nil || summary.Best.Config != key(128) {
		t.Errorf("expected best tile_m=128, got %+v", summary.Best)
	}
	if len(st.Decisions) != 5 {
		t.Errorf("expected 5 decision records, got %d", len(st.Decisions))
	}
}

func TestRecordDecision_LevelNone_CountsOnly(t *testing.T) {
	st := NewSweepTrace(TraceLevelNone)
	st.RecordDecision(DecisionRecord{Config: key(16), Verdict: tune.RejectCoverage})
	if len(st.Decisions) != 0 {
		t.Errorf("expected no stored decisions, got %d", len(st.Decisions))
	}
	if Summarize(st).Verdicts[tune.RejectCoverage] != 1 {
		t.Error("expected verdict to be counted")
	}
}

func TestSweepTrace_ConcurrentRecording(t *testing.T) {
	st := NewSweepTrace(TraceLevelNone)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			st.RecordEvaluation(EvaluationRecord{Config: key(id + 1), Result: tune.Result{LatencyAvg: float64(id + 1), Passed: true}})
		}(i)
	}
	wg.Wait()
	if got := Summarize(st).Dispatched; got != 10 {
		t.Errorf("recorded %d, want 10", got)
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, lvl := range []string{"", "none", "decisions"} {
		if !IsValidTraceLevel(lvl) {
			t.Errorf("expected %q to be valid", lvl)
		}
	}
	if IsValidTraceLevel("verbose") {
		t.Error("expected verbose to be invalid")
	}
}
