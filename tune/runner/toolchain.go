package runner

import (
	"fmt"
	"strconv"
	"time"

	"github.com/herdtune/herdtune/tune"
)

// Mode selects whether the run step only compiles or also executes with a correctness check.
type Mode string

const (
	CompileOnly   Mode = "compile-only"
	CompileAndRun Mode = "compile-and-run"
)

// validModes maps accepted compile mode strings.
var validModes = map[Mode]bool{
	CompileOnly:   true,
	CompileAndRun: true,
}

// IsValidMode returns true if the given string is a recognized compile mode.
func IsValidMode(m string) bool {
	return validModes[Mode(m)]
}

// Toolchain describes how to reach the external compiler, program runner and test harness.
type Toolchain struct {
	KernelDir     string        `yaml:"kernel_dir"`     // where "make compile-kernel" runs
	MakeTarget    string        `yaml:"make_target"`    // usually compile-kernel
	WorkDir       string        `yaml:"work_dir"`       // where run.py and the harness run
	Python        string        `yaml:"python"`         // interpreter for the run script
	RunScript     string        `yaml:"run_script"`     // orchestration entry point
	Harness       string        `yaml:"harness"`        // hardware test executable
	Xclbin        string        `yaml:"xclbin"`         // binary artifact produced by the run step
	Instructions  string        `yaml:"instructions"`   // instruction-stream artifact
	KernelName    string        `yaml:"kernel_name"`    // kernel symbol passed to the harness
	Arch          string        `yaml:"arch"`           // target device family
	PassMarker    string        `yaml:"pass_marker"`    // printed by the run step on success
	StepTimeout   time.Duration `yaml:"step_timeout"`   // per external invocation
	DirectCodegen bool          `yaml:"direct_codegen"` // forwarded to the run step
}

// Validate checks that every command has a program and a positive timeout.
func (tc Toolchain) Validate() error {
	for name, v := range map[string]string{
		"make_target": tc.MakeTarget, "python": tc.Python, "run_script": tc.RunScript,
		"harness": tc.Harness, "xclbin": tc.Xclbin, "instructions": tc.Instructions,
		"kernel_name": tc.KernelName, "arch": tc.Arch,
	} {
		if v == "" {
			return fmt.Errorf("toolchain: %s must be set", name)
		}
	}
	if tc.StepTimeout <= 0 {
		return fmt.Errorf("toolchain: step_timeout must be positive, got %v", tc.StepTimeout)
	}
	return nil
}

// KernelBuild is the compiler invocation for the per-tile kernel.
func (tc Toolchain) KernelBuild(cfg tune.TileConfig) Invocation {
	return Invocation{
		Step: "compile-kernel",
		Dir:  tc.KernelDir,
		Name: "make",
		Args: []string{
			tc.MakeTarget,
			"TILE_M=" + strconv.Itoa(cfg.TileM),
			"TILE_N=" + strconv.Itoa(cfg.TileN),
			"TILE_K_L1=" + strconv.Itoa(cfg.TileKLocal),
			"AIE_TARGET=" + tc.Arch,
		},
	}
}

// ProgramRun is the orchestration invocation that builds (and optionally runs) the full program.
func (tc Toolchain) ProgramRun(cfg tune.TileConfig, topo tune.HerdTopology, mode Mode) Invocation {
	args := []string{
		tc.RunScript,
		"--herd-m", strconv.Itoa(topo.Rows),
		"--herd-n", strconv.Itoa(topo.Cols),
		"--m", strconv.Itoa(cfg.M),
		"--k", strconv.Itoa(cfg.K),
		"--n", strconv.Itoa(cfg.N),
		"--tile-m", strconv.Itoa(cfg.TileM),
		"--tile-k-l2", strconv.Itoa(cfg.TileKMid),
		"--tile-k-l1", strconv.Itoa(cfg.TileKLocal),
		"--tile-n", strconv.Itoa(cfg.TileN),
		"--compile-mode", string(mode),
		"--arch", tc.Arch,
	}
	if tc.DirectCodegen {
		args = append(args, "--direct-codegen")
	}
	return Invocation{Step: "run", Dir: tc.WorkDir, Name: tc.Python, Args: args}
}

// HarnessRun is the hardware test invocation against the produced artifacts.
func (tc Toolchain) HarnessRun(cfg tune.TileConfig) Invocation {
	return Invocation{
		Step: "harness",
		Dir:  tc.WorkDir,
		Name: tc.Harness,
		Args: []string{
			"-x", tc.Xclbin,
			"-k", tc.KernelName,
			"-i", tc.Instructions,
			"-M", strconv.Itoa(cfg.M),
			"-K", strconv.Itoa(cfg.K),
			"-N", strconv.Itoa(cfg.N),
		},
	}
}
