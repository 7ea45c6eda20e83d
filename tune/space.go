package tune

import (
	"iter"
	"slices"
)

// Divisors returns every positive divisor of n in ascending order.
// Non-positive n has no divisors and yields nil.
func Divisors(n int) []int {
	if n <= 0 {
		return nil
	}
	var low, high []int
	for i := 1; withinRoot(i, n); i++ {
		if n%i != 0 {
			continue
		}
		low = append(low, i)
		if j := n / i; j != i {
			high = append(high, j)
		}
	}
	// high was collected in descending order
	slices.Reverse(high)
	return append(low, high...)
}

// withinRoot reports i*i <= n for positive i and n without overflowing.
func withinRoot(i, n int) bool {
	return i <= n/i
}

// atLeast drops values below floor. floor <= 1 keeps everything.
func atLeast(vals []int, floor int) []int {
	if floor <= 1 {
		return vals
	}
	out := vals[:0:0]
	for _, v := range vals {
		if v >= floor {
			out = append(out, v)
		}
	}
	return out
}

// Axes holds the per-dimension candidate values of a sweep.
type Axes struct {
	TileM      []int
	TileKMid   []int
	TileKLocal []int
	TileN      []int
}

// NewAxes derives the candidate values for each tile dimension.
// minTile drops divisors below it (0 keeps all).
func NewAxes(shape ProblemShape, topo HerdTopology, minTile int) Axes {
	kVals := atLeast(Divisors(shape.K), minTile)
	return Axes{
		TileM:      atLeast(Divisors(shape.M/topo.Rows), minTile),
		TileKMid:   kVals,
		TileKLocal: kVals,
		TileN:      atLeast(Divisors(shape.N/topo.Cols), minTile),
	}
}

// Size is the number of configs the stream yields.
func (a Axes) Size() int {
	return len(a.TileM) * len(a.TileKMid) * len(a.TileKLocal) * len(a.TileN)
}

// Candidates lazily yields the cross product of the axes for a fixed shape.
// Iteration order is tile_m, tile_k_mid, tile_k_local, tile_n with tile_n innermost.
// The sequence is pure and can be ranged over any number of times.
func Candidates(shape ProblemShape, axes Axes) iter.Seq[TileConfig] {
	return func(yield func(TileConfig) bool) {
		for _, tm := range axes.TileM {
			for _, tkm := range axes.TileKMid {
				for _, tkl := range axes.TileKLocal {
					for _, tn := range axes.TileN {
						cfg := TileConfig{
							M: shape.M, K: shape.K, N: shape.N,
							TileM: tm, TileKMid: tkm, TileKLocal: tkl, TileN: tn,
						}
						if !yield(cfg) {
							return
						}
					}
				}
			}
		}
	}
}

// CandidateStream is the full candidate sequence for a sweep configuration.
func CandidateStream(sc SweepConfig) iter.Seq[TileConfig] {
	return Candidates(sc.Shape, NewAxes(sc.Shape, sc.Topology, sc.Format.MinTile))
}
