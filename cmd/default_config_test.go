package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdtune/herdtune/tune"
)

func repoDefaults(t *testing.T) string {
	t.Helper()
	for _, path := range []string{"defaults.yaml", "../defaults.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("defaults.yaml not found, skipping integration test")
	return ""
}

func TestLoadDefaultsConfig_ShippedFile(t *testing.T) {
	// GIVEN the repository defaults.yaml
	cfg, err := loadDefaultsConfig(repoDefaults(t))
	require.NoError(t, err)

	// THEN every format is valid
	assert.Equal(t, []string{"bf16", "i16", "i8"}, cfg.FormatNames())
	for _, name := range cfg.FormatNames() {
		f, err := cfg.Format(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, f.Name)
	}

	// AND i8 carries the stricter alignment and minimum tile
	i8, err := cfg.Format("i8")
	require.NoError(t, err)
	assert.Equal(t, 32, i8.AlignM)
	assert.Equal(t, 32, i8.AlignKMid)
	assert.Equal(t, 64, i8.MinTile)
	assert.True(t, i8.EndToEnd)
	assert.Equal(t, 1, i8.Budget.Local.InputA)
	assert.Equal(t, 4, mustFormat(t, cfg, "bf16").Budget.Local.Output)

	// AND the toolchain section is complete
	require.NoError(t, cfg.Toolchain.Validate())
	assert.Equal(t, 10*time.Minute, cfg.Toolchain.StepTimeout)
	assert.Equal(t, "PASS!", cfg.Toolchain.PassMarker)
}

func mustFormat(t *testing.T, cfg Config, name string) tune.Format {
	t.Helper()
	f, err := cfg.Format(name)
	require.NoError(t, err)
	return f
}

func TestLoadDefaultsConfig_UnknownKeyIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("formats:\n  i16:\n    align_m: 16\n    alignn: 16\n"), 0o644))
	_, err := loadDefaultsConfig(path)
	assert.Error(t, err)
}

func TestLoadDefaultsConfig_MissingFile(t *testing.T) {
	_, err := loadDefaultsConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigFormat_UnknownOrInvalid(t *testing.T) {
	cfg, err := loadDefaultsConfig(repoDefaults(t))
	require.NoError(t, err)
	_, err = cfg.Format("fp64")
	assert.ErrorContains(t, err, "available: bf16, i16, i8")

	broken := cfg.Formats["i16"]
	broken.AlignN = 0
	cfg.Formats["broken"] = broken
	_, err = cfg.Format("broken")
	assert.Error(t, err)
}
