package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/herdtune/herdtune/tune"
	"github.com/herdtune/herdtune/tune/runner"
)

// RunMetadata is written next to the output ledger so a result file can be traced
// back to the sweep that produced it.
type RunMetadata struct {
	RunID     string    `yaml:"run_id"`
	CreatedAt time.Time `yaml:"created_at"`
	M         int       `yaml:"m"`
	K         int       `yaml:"k"`
	N         int       `yaml:"n"`
	HerdRows  int       `yaml:"herd_rows"`
	HerdCols  int       `yaml:"herd_cols"`
	Format    string    `yaml:"format"`
	Mode      string    `yaml:"compile_mode"`
	Arch      string    `yaml:"arch"`
	Workers   int       `yaml:"workers"`
	Ledger    string    `yaml:"ledger,omitempty"`
	Output    string    `yaml:"output"`
}

func newRunMetadata(sc tune.SweepConfig, mode runner.Mode, arch string, workers int, ledgerPath, output string) RunMetadata {
	return RunMetadata{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		M:         sc.Shape.M,
		K:         sc.Shape.K,
		N:         sc.Shape.N,
		HerdRows:  sc.Topology.Rows,
		HerdCols:  sc.Topology.Cols,
		Format:    sc.Format.Name,
		Mode:      string(mode),
		Arch:      arch,
		Workers:   workers,
		Ledger:    ledgerPath,
		Output:    output,
	}
}

func metadataPath(output string) string {
	return output + ".meta.yaml"
}

func writeRunMetadata(path string, md RunMetadata) error {
	data, err := yaml.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshalling run metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run metadata: %w", err)
	}
	return nil
}
