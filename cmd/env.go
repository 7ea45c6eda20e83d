package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/herdtune/herdtune/tune/runner"
)

// Environment overrides for the toolchain section of defaults.yaml.
const (
	envArch      = "HERDTUNE_ARCH"
	envKernelDir = "HERDTUNE_KERNEL_DIR"
	envWorkDir   = "HERDTUNE_WORK_DIR"
	envPython    = "HERDTUNE_PYTHON"
)

// loadEnvFile loads KEY=VALUE pairs into the process environment. Variables that are
// already set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// applyToolchainEnv overlays non-empty HERDTUNE_* variables on tc.
func applyToolchainEnv(tc *runner.Toolchain) {
	overrides := map[string]*string{
		envArch:      &tc.Arch,
		envKernelDir: &tc.KernelDir,
		envWorkDir:   &tc.WorkDir,
		envPython:    &tc.Python,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}
