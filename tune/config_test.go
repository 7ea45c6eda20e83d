package tune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweepConfig_Valid(t *testing.T) {
	shape := ProblemShape{M: 1024, K: 512, N: 2048}
	sc, err := NewSweepConfig(shape, herd84, testFormat())
	require.NoError(t, err)
	assert.Equal(t, shape, sc.Shape)
	assert.Equal(t, herd84, sc.Topology)
	assert.Equal(t, "i16", sc.Format.Name)
}

func TestNewSweepConfig_RejectsUntileableShapes(t *testing.T) {
	tests := []struct {
		name  string
		shape ProblemShape
		topo  HerdTopology
	}{
		{"zero M", ProblemShape{M: 0, K: 8, N: 8}, herd84},
		{"negative K", ProblemShape{M: 8, K: -1, N: 8}, herd84},
		{"zero herd", ProblemShape{M: 8, K: 8, N: 8}, HerdTopology{Rows: 0, Cols: 1}},
		{"M not divisible by rows", ProblemShape{M: 100, K: 64, N: 64}, herd84},
		{"N not divisible by cols", ProblemShape{M: 64, K: 64, N: 66}, herd84},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSweepConfig(tt.shape, tt.topo, testFormat())
			assert.ErrorIs(t, err, ErrInvalidShape)
		})
	}
}

func TestFormatValidate_RejectsBadDescriptors(t *testing.T) {
	f := testFormat()
	f.AlignM = 0
	assert.Error(t, f.Validate())

	f = testFormat()
	f.Budget.Mid.Output = 0
	assert.Error(t, f.Validate())

	f = testFormat()
	f.Budget.LocalCapacity = 0
	assert.Error(t, f.Validate())

	f = testFormat()
	f.Budget.LocalReserved = -1
	assert.Error(t, f.Validate())

	assert.NoError(t, testFormat().Validate())
}

func TestResult_FailureSentinel(t *testing.T) {
	assert.True(t, FailedResult().IsFailure())
	assert.False(t, Result{LatencyAvg: 0.5, LatencyMax: 1, LatencyMin: 0.1}.IsFailure())
	assert.False(t, Result{Passed: true}.IsFailure())
}

func TestTileConfig_ComparableKey(t *testing.T) {
	a := reference()
	b := reference()
	m := map[TileConfig]int{a: 1}
	assert.Equal(t, 1, m[b])
	b.TileKLocal = 32
	_, ok := m[b]
	assert.False(t, ok)
}
