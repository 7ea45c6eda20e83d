package tune

import (
	"errors"
	"fmt"
)

// ErrInvalidShape is returned when a problem shape or herd topology cannot be tiled.
var ErrInvalidShape = errors.New("invalid sweep shape")

// ProblemShape is the global matmul size: C[M,N] = A[M,K] * B[K,N].
type ProblemShape struct {
	M int
	K int
	N int
}

// HerdTopology is the number of compute tiles along each herd axis.
type HerdTopology struct {
	Rows int
	Cols int
}

// TileConfig is one point in the search space and the primary key of the ledger.
// It is comparable, so it can be used directly as a map key.
type TileConfig struct {
	M          int
	K          int
	N          int
	TileM      int
	TileKMid   int
	TileKLocal int
	TileN      int
}

func (c TileConfig) String() string {
	return fmt.Sprintf("M: %d, K: %d, N: %d, Tile M: %d, Tile K L2: %d, Tile K L1: %d, Tile N: %d",
		c.M, c.K, c.N, c.TileM, c.TileKMid, c.TileKLocal, c.TileN)
}

// LevelWidths holds bytes per element for each operand role at one memory level.
type LevelWidths struct {
	InputA int `yaml:"input_a"`
	InputB int `yaml:"input_b"`
	Output int `yaml:"output"`
}

// MemoryBudget describes per-level byte widths and capacity ceilings.
type MemoryBudget struct {
	Local             LevelWidths `yaml:"local"`
	Mid               LevelWidths `yaml:"mid"`
	LocalCapacity     int64       `yaml:"local_capacity"`
	LocalReserved     int64       `yaml:"local_reserved"`
	MidCapacityPerRow int64       `yaml:"mid_capacity_per_row"`
}

// Format describes a numeric data format: its vector alignment requirements and memory budget.
type Format struct {
	Name        string       `yaml:"-"`
	AlignM      int          `yaml:"align_m"`
	AlignN      int          `yaml:"align_n"`
	AlignKLocal int          `yaml:"align_k_local"`
	AlignKMid   int          `yaml:"align_k_mid,omitempty"` // 0 or 1 = unconstrained
	MinTile     int          `yaml:"min_tile,omitempty"`    // divisors below this are never generated
	EndToEnd    bool         `yaml:"end_to_end"`            // default to compile-and-run with a correctness check
	Budget      MemoryBudget `yaml:"budget"`
}

// Validate checks that the format has positive alignments, widths and capacities.
func (f Format) Validate() error {
	if f.AlignM <= 0 || f.AlignN <= 0 || f.AlignKLocal <= 0 {
		return fmt.Errorf("format %q: alignments must be positive (m=%d n=%d k_local=%d)",
			f.Name, f.AlignM, f.AlignN, f.AlignKLocal)
	}
	if f.AlignKMid < 0 || f.MinTile < 0 {
		return fmt.Errorf("format %q: align_k_mid and min_tile must be non-negative", f.Name)
	}
	for level, w := range map[string]LevelWidths{"local": f.Budget.Local, "mid": f.Budget.Mid} {
		if w.InputA <= 0 || w.InputB <= 0 || w.Output <= 0 {
			return fmt.Errorf("format %q: %s byte widths must be positive, got %+v", f.Name, level, w)
		}
	}
	if f.Budget.LocalCapacity <= 0 || f.Budget.MidCapacityPerRow <= 0 {
		return fmt.Errorf("format %q: capacities must be positive", f.Name)
	}
	if f.Budget.LocalReserved < 0 {
		return fmt.Errorf("format %q: local_reserved must be non-negative", f.Name)
	}
	return nil
}

// SweepConfig groups the immutable inputs of one sweep run.
type SweepConfig struct {
	Shape    ProblemShape
	Topology HerdTopology
	Format   Format
}

// NewSweepConfig validates and builds a SweepConfig.
func NewSweepConfig(shape ProblemShape, topo HerdTopology, format Format) (SweepConfig, error) {
	if shape.M <= 0 || shape.K <= 0 || shape.N <= 0 {
		return SweepConfig{}, fmt.Errorf("%w: dimensions must be positive, got %+v", ErrInvalidShape, shape)
	}
	if topo.Rows <= 0 || topo.Cols <= 0 {
		return SweepConfig{}, fmt.Errorf("%w: herd must be positive, got %+v", ErrInvalidShape, topo)
	}
	if shape.M%topo.Rows != 0 || shape.N%topo.Cols != 0 {
		return SweepConfig{}, fmt.Errorf("%w: M=%d must divide by herd rows %d and N=%d by herd cols %d",
			ErrInvalidShape, shape.M, topo.Rows, shape.N, topo.Cols)
	}
	if err := format.Validate(); err != nil {
		return SweepConfig{}, err
	}
	return SweepConfig{Shape: shape, Topology: topo, Format: format}, nil
}

// Result is the measured outcome of one candidate.
// The zero-latency, Passed=false value is the failure sentinel.
type Result struct {
	LatencyAvg float64
	LatencyMax float64
	LatencyMin float64
	Passed     bool
}

// FailedResult returns the orchestration failure sentinel.
func FailedResult() Result {
	return Result{}
}

// IsFailure reports whether r is the orchestration failure sentinel.
func (r Result) IsFailure() bool {
	return !r.Passed && r.LatencyAvg == 0 && r.LatencyMax == 0 && r.LatencyMin == 0
}
