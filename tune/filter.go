package tune

// Verdict is the outcome of the admissibility checks for one candidate.
type Verdict string

const (
	Admitted         Verdict = "admitted"
	RejectSolved     Verdict = "solved"       // ledger already holds a valid measurement
	RejectAlignment  Verdict = "alignment"    // tile sizes not multiples of the vector widths
	RejectCoverage   Verdict = "coverage"     // tiling leaves a remainder
	RejectLocalBytes Verdict = "local-memory" // L1 footprint over capacity
	RejectMidBytes   Verdict = "mid-memory"   // L2 footprint over capacity
)

// Verdicts lists every verdict in check order, Admitted last.
var Verdicts = []Verdict{RejectSolved, RejectAlignment, RejectCoverage, RejectLocalBytes, RejectMidBytes, Admitted}

// Solved reports whether a valid prior measurement exists for a key.
// The ledger snapshot taken at sweep start implements it.
type Solved interface {
	Solved(cfg TileConfig) bool
}

// LocalBytes is the projected L1 footprint of one compute tile: double-buffered
// A and B tiles, the output tile, and the reserved bookkeeping bytes.
func LocalBytes(cfg TileConfig, b MemoryBudget) int64 {
	tm, tkl, tn := int64(cfg.TileM), int64(cfg.TileKLocal), int64(cfg.TileN)
	w := b.Local
	return 2*int64(w.InputA)*tm*tkl +
		2*int64(w.InputB)*tn*tkl +
		int64(w.Output)*tm*tn +
		b.LocalReserved
}

// MidBytes is the projected L2 footprint across the herd: double-buffered A, B
// and output tiles for every herd row.
func MidBytes(cfg TileConfig, b MemoryBudget, topo HerdTopology) int64 {
	tm, tkm, tn := int64(cfg.TileM), int64(cfg.TileKMid), int64(cfg.TileN)
	w := b.Mid
	perRow := int64(w.InputA)*tm*tkm + int64(w.InputB)*tn*tkm + int64(w.Output)*tm*tn
	return 2 * int64(topo.Rows) * perRow
}

// MidCapacity is the L2 ceiling for a herd, which scales with the number of rows.
func MidCapacity(b MemoryBudget, topo HerdTopology) int64 {
	return int64(topo.Rows) * b.MidCapacityPerRow
}

func divisible(n, d int) bool {
	return d <= 1 || n%d == 0
}

// Check evaluates the admissibility checks in order and returns the first failing one.
// prior may be nil when no ledger is loaded. A herd without rows or columns covers
// nothing, so every config fails coverage on it.
func Check(cfg TileConfig, format Format, topo HerdTopology, prior Solved) Verdict {
	if prior != nil && prior.Solved(cfg) {
		return RejectSolved
	}

	if !divisible(cfg.TileM, format.AlignM) ||
		!divisible(cfg.TileN, format.AlignN) ||
		!divisible(cfg.TileKLocal, format.AlignKLocal) ||
		!divisible(cfg.TileKMid, format.AlignKMid) {
		return RejectAlignment
	}

	if topo.Rows <= 0 || topo.Cols <= 0 ||
		cfg.TileM <= 0 || cfg.TileN <= 0 || cfg.TileKMid <= 0 || cfg.TileKLocal <= 0 ||
		cfg.M%(cfg.TileM*topo.Rows) != 0 ||
		cfg.N%(cfg.TileN*topo.Cols) != 0 ||
		cfg.K%cfg.TileKMid != 0 ||
		cfg.TileKMid%cfg.TileKLocal != 0 {
		return RejectCoverage
	}

	if LocalBytes(cfg, format.Budget) > format.Budget.LocalCapacity {
		return RejectLocalBytes
	}

	if MidBytes(cfg, format.Budget, topo) > MidCapacity(format.Budget, topo) {
		return RejectMidBytes
	}

	return Admitted
}

// IsAdmissible reports whether cfg passes every check.
func IsAdmissible(cfg TileConfig, format Format, topo HerdTopology, prior Solved) bool {
	return Check(cfg, format, topo, prior) == Admitted
}
