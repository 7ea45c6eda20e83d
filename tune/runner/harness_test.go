package runner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdtune/herdtune/tune/internal/testutil"
	"github.com/herdtune/herdtune/tune/runner"
)

func TestHarnessV1_ParsesLabels(t *testing.T) {
	lat, err := runner.HarnessV1.Parse(testutil.HarnessOutput(1523.75, 1610, 1490))
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "avg", 1523.75, lat.Avg, 1e-12)
	testutil.AssertFloat64Equal(t, "max", 1610, lat.Max, 1e-12)
	testutil.AssertFloat64Equal(t, "min", 1490, lat.Min, 1e-12)
}

func TestHarnessV1_IntegerAndDecimalForms(t *testing.T) {
	text := "Avg NPU matmul time: 12.5us.\nMax NPU matmul time: 14us.\nMin NPU matmul time: 11us.\n"
	lat, err := runner.HarnessV1.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, runner.Latency{Avg: 12.5, Max: 14, Min: 11}, lat)
}

func TestHarnessV1_FirstOccurrenceWins(t *testing.T) {
	text := "Avg NPU matmul time: 1.0us.\nMax NPU matmul time: 3us.\nMin NPU matmul time: 1us.\n" +
		"Avg NPU matmul time: 99.0us.\n"
	lat, err := runner.HarnessV1.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 1.0, lat.Avg)
}

func TestHarnessV1_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", runner.ErrLatencyMissing},
		{"missing min", "Avg NPU matmul time: 1.0us\nMax NPU matmul time: 2us\n", runner.ErrLatencyMissing},
		{"non-numeric", "Avg NPU matmul time: nan\nMax NPU matmul time: 2\nMin NPU matmul time: 1\n", runner.ErrLatencyMissing},
		{"reworded label", "Average NPU matmul time: 1.0\nMax NPU matmul time: 2\nMin NPU matmul time: 1\n", runner.ErrLatencyMissing},
		{"min above max", "Avg NPU matmul time: 1.5\nMax NPU matmul time: 1\nMin NPU matmul time: 2\n", runner.ErrMalformedLatency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.HarnessV1.Parse(tt.text)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
