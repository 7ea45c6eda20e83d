package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdtune/herdtune/tune/runner"
)

func TestLoadEnvFile_MissingIsTolerated(t *testing.T) {
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), ".env")))
	assert.NoError(t, loadEnvFile(""))
}

func TestLoadEnvFile_ExistingVariablesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HERDTUNE_ARCH=aie2\nHERDTUNE_PYTHON=python3.12\n"), 0o644))
	t.Setenv(envArch, "aie2p")
	t.Setenv(envPython, "")
	require.NoError(t, os.Unsetenv(envPython))

	require.NoError(t, loadEnvFile(path))

	assert.Equal(t, "aie2p", os.Getenv(envArch))
	assert.Equal(t, "python3.12", os.Getenv(envPython))
}

func TestApplyToolchainEnv(t *testing.T) {
	t.Setenv(envKernelDir, "/opt/kernels")
	t.Setenv(envWorkDir, "")
	t.Setenv(envArch, "aie2")
	t.Setenv(envPython, "")

	tc := runner.Toolchain{KernelDir: "..", WorkDir: ".", Arch: "aie2p", Python: "python"}
	applyToolchainEnv(&tc)

	assert.Equal(t, "/opt/kernels", tc.KernelDir)
	assert.Equal(t, ".", tc.WorkDir, "empty variables are ignored")
	assert.Equal(t, "aie2", tc.Arch)
	assert.Equal(t, "python", tc.Python)
}
