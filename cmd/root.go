package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/herdtune/herdtune/tune"
	"github.com/herdtune/herdtune/tune/runner"
	"github.com/herdtune/herdtune/tune/sweep"
	"github.com/herdtune/herdtune/tune/trace"
)

var (
	// problem and herd
	size     int // square problem size used for any of m/k/n left at 0
	dimM     int
	dimK     int
	dimN     int
	herdRows int
	herdCols int

	// sweep
	formatName  string // key into defaults.yaml formats
	ledgerPath  string // prior results to skip
	outputPath  string // results of this run
	workers     int    // concurrent evaluations
	compileMode string // empty = derived from the format
	traceLevel  string // decision trace verbosity

	// toolchain overrides
	arch          string
	kernelDir     string
	workDir       string
	stepTimeout   time.Duration
	directCodegen bool

	// ambient
	logLevel         string
	defaultsFilePath string
	envFilePath      string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "herdtune",
	Short: "Tile-size autotuner for matmul kernels on a herd of compute tiles",
}

// runCmd sweeps the tiling space using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep tile configurations and record measured latencies",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		if err := loadEnvFile(envFilePath); err != nil {
			logrus.Fatalf("%v", err)
		}
		defaults, err := loadDefaultsConfig(defaultsFilePath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		format, err := defaults.Format(formatName)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		sc, err := tune.NewSweepConfig(resolveShape(size, dimM, dimK, dimN),
			tune.HerdTopology{Rows: herdRows, Cols: herdCols}, format)
		if err != nil {
			logrus.Fatalf("Invalid sweep: %v", err)
		}

		tc := defaults.Toolchain
		applyToolchainEnv(&tc)
		applyToolchainFlags(&tc, cmd.Flags().Changed)
		if err := tc.Validate(); err != nil {
			logrus.Fatalf("Invalid toolchain: %v", err)
		}

		mode, err := resolveMode(compileMode, format)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level %q (none, decisions)", traceLevel)
		}
		if workers < 1 {
			logrus.Fatalf("--workers must be at least 1, got %d", workers)
		}

		output := outputPath
		if output == "" {
			output = defaultOutputName(sc.Shape, format.Name, tc.DirectCodegen)
		}

		md := newRunMetadata(sc, mode, tc.Arch, workers, ledgerPath, output)
		log := logrus.WithField("run_id", md.RunID)
		log.Infof("Starting sweep: shape=%dx%dx%d herd=%dx%d format=%s mode=%s workers=%d output=%s",
			sc.Shape.M, sc.Shape.K, sc.Shape.N, sc.Topology.Rows, sc.Topology.Cols, format.Name, mode, workers, output)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eval, err := buildEvaluator(tc, sc.Topology, mode, workers)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		if err := writeRunMetadata(metadataPath(output), md); err != nil {
			log.Warnf("%v", err)
		}

		startTime := time.Now()
		st := trace.NewSweepTrace(trace.TraceLevel(traceLevel))
		driver := sweep.New(sweep.Config{
			Sweep:      sc,
			LedgerPath: ledgerPath,
			OutputPath: output,
			WithPassed: mode == runner.CompileAndRun,
			Workers:    workers,
		}, eval, st)

		stats, err := driver.Run(ctx)
		if err != nil {
			logrus.Fatalf("Sweep aborted: %v", err)
		}
		printSummary(os.Stdout, stats, trace.Summarize(st), time.Since(startTime))
		if stats.Interrupted {
			log.Warn("Sweep interrupted; re-run with --ledger pointing at the output to continue")
			return
		}
		log.Info("Sweep complete.")
	},
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// resolveShape fills any unset dimension from the square size.
func resolveShape(size, m, k, n int) tune.ProblemShape {
	pick := func(v int) int {
		if v == 0 {
			return size
		}
		return v
	}
	return tune.ProblemShape{M: pick(m), K: pick(k), N: pick(n)}
}

// resolveMode picks the compile mode from the flag, or from the format when unset.
func resolveMode(flag string, format tune.Format) (runner.Mode, error) {
	if flag == "" {
		if format.EndToEnd {
			return runner.CompileAndRun, nil
		}
		return runner.CompileOnly, nil
	}
	if !runner.IsValidMode(flag) {
		return "", fmt.Errorf("invalid compile mode %q (compile-only, compile-and-run)", flag)
	}
	return runner.Mode(flag), nil
}

// buildEvaluator returns a single runner, or a pool with one runner per worker
// directory when sweeping in parallel.
func buildEvaluator(tc runner.Toolchain, topo tune.HerdTopology, mode runner.Mode, workers int) (sweep.Evaluator, error) {
	if workers <= 1 {
		return runner.New(tc, topo, mode, nil), nil
	}
	runners := make([]*runner.Runner, 0, workers)
	for i := range workers {
		wtc, err := tc.ForWorker(i)
		if err != nil {
			return nil, err
		}
		if err := wtc.CheckDirs(); err != nil {
			return nil, fmt.Errorf("worker %d: %w (each worker needs its own copy of the kernel and work directories)", i, err)
		}
		runners = append(runners, runner.New(wtc, topo, mode, nil))
	}
	return runner.NewPool(runners...), nil
}

// applyToolchainFlags overrides tc with flags the user set explicitly.
func applyToolchainFlags(tc *runner.Toolchain, changed func(name string) bool) {
	if changed("arch") {
		tc.Arch = arch
	}
	if changed("kernel-dir") {
		tc.KernelDir = kernelDir
	}
	if changed("work-dir") {
		tc.WorkDir = workDir
	}
	if changed("step-timeout") {
		tc.StepTimeout = stepTimeout
	}
	if changed("direct-codegen") {
		tc.DirectCodegen = directCodegen
	}
}

// defaultOutputName follows the naming of the earlier sweep scripts.
func defaultOutputName(shape tune.ProblemShape, format string, direct bool) string {
	dims := strconv.Itoa(shape.M)
	if shape.K != shape.M || shape.N != shape.M {
		dims = fmt.Sprintf("%dx%dx%d", shape.M, shape.K, shape.N)
	}
	suffix := "_aie_api"
	if direct {
		suffix = "_direct_codegen"
	}
	return fmt.Sprintf("data%s_%s_rerun%s.csv", dims, format, suffix)
}

func printSummary(w io.Writer, stats sweep.Stats, s *trace.TraceSummary, elapsed time.Duration) {
	_, _ = fmt.Fprintln(w, "=== Sweep Summary ===")
	_, _ = fmt.Fprintf(w, "Generated:    %d\n", stats.Generated)
	for _, v := range tune.Verdicts {
		if n := s.Verdicts[v]; n > 0 && v != tune.Admitted {
			_, _ = fmt.Fprintf(w, "  rejected (%s): %d\n", v, n)
		}
	}
	_, _ = fmt.Fprintf(w, "Dispatched:   %d\n", stats.Dispatched)
	_, _ = fmt.Fprintf(w, "Recorded:     %d (passed %d, unverified %d, failed %d)\n",
		stats.Recorded, s.Succeeded, s.Unverified, s.Failed)
	if s.Best != nil {
		_, _ = fmt.Fprintf(w, "Best:         %s -> %.3fus\n", s.Best.Config, s.Best.Result.LatencyAvg)
	}
	_, _ = fmt.Fprintf(w, "Elapsed:      %s\n", elapsed.Round(time.Second))
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&defaultsFilePath, "defaults-filepath", "defaults.yaml", "Path to defaults.yaml")

	// problem and herd
	runCmd.Flags().IntVar(&size, "size", 1024, "Square problem size used for M, K and N unless set individually")
	runCmd.Flags().IntVar(&dimM, "m", 0, "Rows of A and C (0 = --size)")
	runCmd.Flags().IntVar(&dimK, "k", 0, "Reduction dimension (0 = --size)")
	runCmd.Flags().IntVar(&dimN, "n", 0, "Columns of B and C (0 = --size)")
	runCmd.Flags().IntVar(&herdRows, "herd-rows", 8, "Compute tiles along M")
	runCmd.Flags().IntVar(&herdCols, "herd-cols", 4, "Compute tiles along N")

	// sweep
	runCmd.Flags().StringVar(&formatName, "format", "i16", "Data format from defaults.yaml")
	runCmd.Flags().StringVar(&ledgerPath, "ledger", "", "Prior result CSV; keys with a valid measurement are skipped")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Result CSV (default data{M}_{format}_rerun_{codegen}.csv; equal to --ledger resumes in place)")
	runCmd.Flags().IntVar(&workers, "workers", 1, "Concurrent evaluations; worker i uses worker-<i> under the kernel and work directories")
	runCmd.Flags().StringVar(&compileMode, "compile-mode", "", "compile-only or compile-and-run (default from the format)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level (none, decisions)")

	// toolchain
	runCmd.Flags().StringVar(&arch, "arch", "", "Target architecture (overrides defaults.yaml and HERDTUNE_ARCH)")
	runCmd.Flags().StringVar(&kernelDir, "kernel-dir", "", "Directory holding the kernel makefile")
	runCmd.Flags().StringVar(&workDir, "work-dir", "", "Directory the run script and harness execute in")
	runCmd.Flags().DurationVar(&stepTimeout, "step-timeout", 0, "Timeout for each external step")
	runCmd.Flags().BoolVar(&directCodegen, "direct-codegen", false, "Pass --direct-codegen to the run script")
	runCmd.Flags().StringVar(&envFilePath, "env-file", ".env", "Optional file with HERDTUNE_* variables")

	rootCmd.AddCommand(runCmd)
}
