package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/herdtune/herdtune/tune"
	"github.com/herdtune/herdtune/tune/runner"
)

func TestRunMetadata_WrittenNextToOutput(t *testing.T) {
	// GIVEN a sweep configuration
	sc := tune.SweepConfig{
		Shape:    tune.ProblemShape{M: 1024, K: 1024, N: 1024},
		Topology: tune.HerdTopology{Rows: 8, Cols: 4},
		Format:   tune.Format{Name: "i8"},
	}
	output := filepath.Join(t.TempDir(), "data1024_i8_rerun_aie_api.csv")
	md := newRunMetadata(sc, runner.CompileAndRun, "aie2p", 2, "old.csv", output)

	// WHEN the sidecar is written
	path := metadataPath(output)
	require.NoError(t, writeRunMetadata(path, md))

	// THEN it reads back with a parseable run ID
	assert.Equal(t, output+".meta.yaml", path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got RunMetadata
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, md.RunID, got.RunID)
	assert.True(t, md.CreatedAt.Equal(got.CreatedAt))
	_, err = uuid.Parse(got.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "compile-and-run", got.Mode)
	assert.Equal(t, 8, got.HerdRows)
	assert.Equal(t, "old.csv", got.Ledger)
}

func TestRunMetadata_UniqueRunIDs(t *testing.T) {
	sc := tune.SweepConfig{Format: tune.Format{Name: "i16"}}
	a := newRunMetadata(sc, runner.CompileOnly, "aie2p", 1, "", "out.csv")
	b := newRunMetadata(sc, runner.CompileOnly, "aie2p", 1, "", "out.csv")
	assert.NotEqual(t, a.RunID, b.RunID)
}
