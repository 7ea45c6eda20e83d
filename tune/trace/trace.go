package trace

import (
	"sync"

	"github.com/herdtune/herdtune/tune"
)

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone keeps verdict counts and evaluations only.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions also keeps one record per generated candidate.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// SweepTrace collects decision and evaluation records during a sweep.
// Safe for concurrent use.
type SweepTrace struct {
	mu          sync.Mutex
	level       TraceLevel
	counts      map[tune.Verdict]int
	Decisions   []DecisionRecord
	Evaluations []EvaluationRecord
}

// NewSweepTrace creates a SweepTrace ready for recording.
func NewSweepTrace(level TraceLevel) *SweepTrace {
	return &SweepTrace{
		level:       level,
		counts:      make(map[tune.Verdict]int),
		Decisions:   make([]DecisionRecord, 0),
		Evaluations: make([]EvaluationRecord, 0),
	}
}

// RecordDecision counts a filter verdict and, at TraceLevelDecisions, keeps the record.
func (st *SweepTrace) RecordDecision(record DecisionRecord) {
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.counts[record.Verdict]++
	if st.level == TraceLevelDecisions {
		st.Decisions = append(st.Decisions, record)
	}
}

// RecordEvaluation appends an evaluation record.
func (st *SweepTrace) RecordEvaluation(record EvaluationRecord) {
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Evaluations = append(st.Evaluations, record)
}
