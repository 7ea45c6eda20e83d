package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/herdtune/herdtune/tune/ledger"
)

// --- herdtune report ---

var (
	reportLedgerPath string
	reportTop        int
)

// ReportEntry is one ranked configuration in the report output.
type ReportEntry struct {
	Rank       int     `yaml:"rank"`
	M          int     `yaml:"m"`
	K          int     `yaml:"k"`
	N          int     `yaml:"n"`
	TileM      int     `yaml:"tile_m"`
	TileKMid   int     `yaml:"tile_k_mid"`
	TileKLocal int     `yaml:"tile_k_local"`
	TileN      int     `yaml:"tile_n"`
	LatencyAvg float64 `yaml:"latency_avg"`
	LatencyMax float64 `yaml:"latency_max"`
	LatencyMin float64 `yaml:"latency_min"`
	Passed     bool    `yaml:"passed"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the fastest valid configurations of a result ledger",
	Long:  "Load a result CSV and print the best configurations by average latency as YAML. Output is written to stdout for piping.",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)
		if _, err := os.Stat(reportLedgerPath); err != nil {
			logrus.Fatalf("Cannot read ledger: %v", err)
		}
		l, err := ledger.Load(reportLedgerPath)
		if err != nil {
			logrus.Fatalf("Loading ledger failed: %v", err)
		}
		entries := buildReport(l, reportTop)
		if len(entries) == 0 {
			logrus.Warnf("No valid results in %s", reportLedgerPath)
			return
		}
		writeYAML(os.Stdout, entries)
	},
}

// --- herdtune formats ---

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the data formats configured in defaults.yaml",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)
		cfg, err := loadDefaultsConfig(defaultsFilePath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		for _, name := range cfg.FormatNames() {
			if _, err := cfg.Format(name); err != nil {
				logrus.Warnf("%v", err)
			}
		}
		writeYAML(os.Stdout, cfg.Formats)
	},
}

func buildReport(l ledger.Ledger, top int) []ReportEntry {
	ranked := l.Best(top)
	entries := make([]ReportEntry, 0, len(ranked))
	for i, r := range ranked {
		c := r.Config
		entries = append(entries, ReportEntry{
			Rank: i + 1,
			M:    c.M, K: c.K, N: c.N,
			TileM: c.TileM, TileKMid: c.TileKMid, TileKLocal: c.TileKLocal, TileN: c.TileN,
			LatencyAvg: r.Result.LatencyAvg,
			LatencyMax: r.Result.LatencyMax,
			LatencyMin: r.Result.LatencyMin,
			Passed:     r.Result.Passed,
		})
	}
	return entries
}

// writeYAML marshals v to YAML and writes it to w.
func writeYAML(w io.Writer, v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		logrus.Fatalf("YAML marshal failed: %v", err)
	}
	_, _ = fmt.Fprint(w, string(data))
}

func init() {
	reportCmd.Flags().StringVar(&reportLedgerPath, "ledger", "", "Path to a result CSV")
	reportCmd.Flags().IntVar(&reportTop, "top", 10, "Number of configurations to print (0 = all)")
	_ = reportCmd.MarkFlagRequired("ledger")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(formatsCmd)
}
