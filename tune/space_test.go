package tune

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDivisors_KnownValues(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{1, []int{1}},
		{2, []int{1, 2}},
		{12, []int{1, 2, 3, 4, 6, 12}},
		{16, []int{1, 2, 4, 8, 16}},
		{36, []int{1, 2, 3, 4, 6, 9, 12, 18, 36}},
		{97, []int{1, 97}},
		{128, []int{1, 2, 4, 8, 16, 32, 64, 128}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Divisors(tt.n), "Divisors(%d)", tt.n)
	}
}

func TestDivisors_NonPositive_Empty(t *testing.T) {
	assert.Empty(t, Divisors(0))
	assert.Empty(t, Divisors(-12))
}

// Brute-force comparison over a range: strictly ascending, complete, every value divides n.
func TestDivisors_MatchesBruteForce(t *testing.T) {
	for n := 1; n <= 2000; n++ {
		got := Divisors(n)
		var want []int
		for d := 1; d <= n; d++ {
			if n%d == 0 {
				want = append(want, d)
			}
		}
		require.Equal(t, want, got, "n=%d", n)
		require.Equal(t, 1, got[0])
		require.Equal(t, n, got[len(got)-1])
		for i := 1; i < len(got); i++ {
			require.Less(t, got[i-1], got[i], "n=%d not strictly ascending", n)
		}
	}
}

func TestDivisors_LargeInput(t *testing.T) {
	got := Divisors(1 << 40)
	require.Len(t, got, 41)
	for i, d := range got {
		assert.Equal(t, 1<<i, d)
	}
}

func TestWithinRoot_NoOverflowNearMaxInt(t *testing.T) {
	// 3037000499^2 fits in an int64, 3037000500^2 does not
	assert.True(t, withinRoot(3037000499, math.MaxInt64))
	assert.False(t, withinRoot(3037000500, math.MaxInt64))
	assert.True(t, withinRoot(4, 16))
	assert.False(t, withinRoot(5, 24))
}

func TestNewAxes_UsesHerdSplitForMAndN(t *testing.T) {
	// GIVEN M=K=N=1024 on an 8x4 herd
	shape := ProblemShape{M: 1024, K: 1024, N: 1024}
	axes := NewAxes(shape, HerdTopology{Rows: 8, Cols: 4}, 0)

	// THEN tile_m ranges over divisors of 128 and tile_n over divisors of 256
	assert.Equal(t, Divisors(128), axes.TileM)
	assert.Equal(t, Divisors(256), axes.TileN)
	assert.Equal(t, Divisors(1024), axes.TileKMid)
	assert.Equal(t, Divisors(1024), axes.TileKLocal)
	assert.Equal(t, 8*11*11*9, axes.Size())
}

func TestNewAxes_MinTileDropsSmallDivisors(t *testing.T) {
	axes := NewAxes(ProblemShape{M: 4096, K: 4096, N: 4096}, HerdTopology{Rows: 8, Cols: 4}, 64)
	assert.Equal(t, []int{64, 128, 256, 512}, axes.TileM)
	assert.Equal(t, []int{64, 128, 256, 512, 1024}, axes.TileN)
	assert.Equal(t, []int{64, 128, 256, 512, 1024, 2048, 4096}, axes.TileKMid)
}

func TestCandidates_NestedOrderWithTileNInnermost(t *testing.T) {
	shape := ProblemShape{M: 4, K: 2, N: 2}
	axes := Axes{TileM: []int{1, 2}, TileKMid: []int{2}, TileKLocal: []int{1, 2}, TileN: []int{1, 2}}

	got := slices.Collect(Candidates(shape, axes))

	require.Len(t, got, axes.Size())
	want := []TileConfig{
		{4, 2, 2, 1, 2, 1, 1}, {4, 2, 2, 1, 2, 1, 2},
		{4, 2, 2, 1, 2, 2, 1}, {4, 2, 2, 1, 2, 2, 2},
		{4, 2, 2, 2, 2, 1, 1}, {4, 2, 2, 2, 2, 1, 2},
		{4, 2, 2, 2, 2, 2, 1}, {4, 2, 2, 2, 2, 2, 2},
	}
	assert.Equal(t, want, got)
}

func TestCandidates_Restartable(t *testing.T) {
	sc, err := NewSweepConfig(ProblemShape{M: 256, K: 256, N: 256}, HerdTopology{Rows: 2, Cols: 2}, testFormat())
	require.NoError(t, err)

	seq := CandidateStream(sc)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestCandidates_EarlyBreakStops(t *testing.T) {
	axes := NewAxes(ProblemShape{M: 1024, K: 1024, N: 1024}, HerdTopology{Rows: 8, Cols: 4}, 0)
	n := 0
	for range Candidates(ProblemShape{M: 1024, K: 1024, N: 1024}, axes) {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}
