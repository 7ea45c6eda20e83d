// Package ledger persists sweep results as an append-only CSV table.
// A ledger from an earlier run is read-only input that lets a new run skip keys
// that already hold a valid measurement.
package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/herdtune/herdtune/tune"
)

// Canonical column names.
const (
	ColM          = "m"
	ColK          = "k"
	ColN          = "n"
	ColTileM      = "tile_m"
	ColTileKMid   = "tile_k_mid"
	ColTileKLocal = "tile_k_local"
	ColTileN      = "tile_n"
	ColLatencyAvg = "latency_avg"
	ColLatencyMax = "latency_max"
	ColLatencyMin = "latency_min"
	ColPassed     = "passed"
)

// KeyColumns are the seven columns a row is keyed on, in file order.
var KeyColumns = []string{ColM, ColK, ColN, ColTileM, ColTileKMid, ColTileKLocal, ColTileN}

var latencyColumns = []string{ColLatencyAvg, ColLatencyMax, ColLatencyMin}

// headers written by the earlier sweep scripts
var legacyAliases = map[string]string{
	"tile_k_l2":   ColTileKMid,
	"tile_k_l1":   ColTileKLocal,
	"latency avg": ColLatencyAvg,
	"latency max": ColLatencyMax,
	"latency min": ColLatencyMin,
}

// Columns returns the header for a ledger file. The passed column is only
// present for sweeps that run the end-to-end correctness check.
func Columns(withPassed bool) []string {
	cols := slices.Concat(KeyColumns, latencyColumns)
	if withPassed {
		cols = append(cols, ColPassed)
	}
	return cols
}

func canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := legacyAliases[name]; ok {
		return alias
	}
	return name
}

// Row is one prior record as read from disk. Fields holds the raw values keyed by
// canonical column name; nothing beyond the key is parsed until asked.
type Row struct {
	Config tune.TileConfig
	Fields map[string]string
}

// IsValid reports whether the row carries a strictly positive average latency.
// Missing or unparsable latencies make a row invalid.
func IsValid(row Row) bool {
	raw, ok := row.Fields[ColLatencyAvg]
	if !ok {
		return false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false
	}
	return v > 0
}

// Result parses the latency and pass columns of the row.
// Rows without a passed column report Passed when the average latency is positive.
func (r Row) Result() (tune.Result, error) {
	var vals [3]float64
	for i, col := range latencyColumns {
		raw, ok := r.Fields[col]
		if !ok {
			return tune.Result{}, fmt.Errorf("row %v: missing %s", r.Config, col)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return tune.Result{}, fmt.Errorf("row %v: parsing %s: %w", r.Config, col, err)
		}
		vals[i] = v
	}
	res := tune.Result{LatencyAvg: vals[0], LatencyMax: vals[1], LatencyMin: vals[2]}
	if raw, ok := r.Fields[ColPassed]; ok {
		passed, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return tune.Result{}, fmt.Errorf("row %v: parsing %s: %w", r.Config, ColPassed, err)
		}
		res.Passed = passed
	} else {
		res.Passed = res.LatencyAvg > 0
	}
	return res, nil
}

// Ledger maps a tile config to its prior row.
type Ledger map[tune.TileConfig]Row

// Solved reports whether cfg already holds a valid measurement.
func (l Ledger) Solved(cfg tune.TileConfig) bool {
	row, ok := l[cfg]
	return ok && IsValid(row)
}

// ValidCount returns the number of keys with a valid measurement.
func (l Ledger) ValidCount() int {
	n := 0
	for _, row := range l {
		if IsValid(row) {
			n++
		}
	}
	return n
}

// Load reads a ledger file. A missing file yields an empty ledger. A trailing
// line without a newline is kept only when it parses as a complete row.
// Rows whose key columns do not parse as positive integers are skipped; a valid
// row is never replaced by a later invalid row for the same key.
func Load(path string) (Ledger, error) {
	l := make(Ledger)
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logrus.Infof("No prior ledger at %s, starting fresh", path)
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	// an unterminated last line is either a complete row missing its newline or
	// a row cut short by a crash
	if cut := bytes.LastIndexByte(data, '\n') + 1; cut < len(data) && !completeTail(data, cut) {
		logrus.Warnf("Ledger %s ends with a partial row, ignoring %d bytes", path, len(data)-cut)
		data = data[:cut]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return l, nil
	}
	if err != nil {
		logrus.Warnf("Ledger %s has an unreadable header, ignoring it: %v", path, err)
		return l, nil
	}
	names, index := columnIndex(header)
	if col, ok := missingKey(index); ok {
		logrus.Warnf("Ledger %s has no %q column, ignoring it", path, col)
		return l, nil
	}

	line := 1
	skipped := 0
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading ledger row %d: %w", line, err)
		}
		row, ok := parseRow(record, names, index)
		if !ok {
			skipped++
			logrus.Debugf("Ledger %s: skipping malformed row %d: %v", path, line, record)
			continue
		}
		if prev, exists := l[row.Config]; exists && IsValid(prev) && !IsValid(row) {
			continue
		}
		l[row.Config] = row
	}
	if skipped > 0 {
		logrus.Warnf("Ledger %s: skipped %d malformed rows", path, skipped)
	}
	logrus.Infof("Loaded %d prior results (%d valid) from %s", len(l), l.ValidCount(), path)
	return l, nil
}

func columnIndex(header []string) ([]string, map[string]int) {
	names := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		names[i] = canonical(h)
		index[names[i]] = i
	}
	return names, index
}

func missingKey(index map[string]int) (string, bool) {
	for _, col := range KeyColumns {
		if _, ok := index[col]; !ok {
			return col, true
		}
	}
	return "", false
}

// completeTail reports whether data[cut:], the unterminated last line of a
// ledger, is a whole row that only lacks its newline: it has a field for every
// header column and its key, latency and passed fields all parse. A file holding
// only a header counts as complete.
func completeTail(data []byte, cut int) bool {
	if cut == 0 {
		return true
	}
	header, err := readRecord(data[:cut])
	if err != nil {
		return false
	}
	record, err := readRecord(data[cut:])
	if err != nil || len(record) < len(header) {
		return false
	}
	names, index := columnIndex(header)
	if _, missing := missingKey(index); missing {
		return false
	}
	if _, ok := parseRow(record, names, index); !ok {
		return false
	}
	for _, col := range latencyColumns {
		if pos, ok := index[col]; ok {
			if _, err := strconv.ParseFloat(strings.TrimSpace(record[pos]), 64); err != nil {
				return false
			}
		}
	}
	if pos, ok := index[ColPassed]; ok {
		if _, err := strconv.ParseBool(strings.TrimSpace(record[pos])); err != nil {
			return false
		}
	}
	return true
}

func readRecord(line []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.Read()
}

func parseRow(record, names []string, index map[string]int) (Row, bool) {
	var key [7]int
	for i, col := range KeyColumns {
		pos := index[col]
		if pos >= len(record) {
			return Row{}, false
		}
		v, err := strconv.Atoi(strings.TrimSpace(record[pos]))
		if err != nil || v <= 0 {
			return Row{}, false
		}
		key[i] = v
	}
	fields := make(map[string]string, len(record))
	for i, v := range record {
		if i < len(names) {
			fields[names[i]] = v
		}
	}
	return Row{
		Config: tune.TileConfig{
			M: key[0], K: key[1], N: key[2],
			TileM: key[3], TileKMid: key[4], TileKLocal: key[5], TileN: key[6],
		},
		Fields: fields,
	}, true
}

// Ranked is a valid ledger row with its parsed result.
type Ranked struct {
	Config tune.TileConfig
	Result tune.Result
}

// Best returns up to n valid rows ordered by ascending average latency.
// n <= 0 returns all of them.
func (l Ledger) Best(n int) []Ranked {
	var out []Ranked
	for cfg, row := range l {
		if !IsValid(row) {
			continue
		}
		res, err := row.Result()
		if err != nil {
			continue
		}
		out = append(out, Ranked{Config: cfg, Result: res})
	}
	slices.SortFunc(out, func(a, b Ranked) int {
		if c := compareFloat(a.Result.LatencyAvg, b.Result.LatencyAvg); c != 0 {
			return c
		}
		return compareKey(a.Config, b.Config)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareKey(a, b tune.TileConfig) int {
	ka := [7]int{a.M, a.K, a.N, a.TileM, a.TileKMid, a.TileKLocal, a.TileN}
	kb := [7]int{b.M, b.K, b.N, b.TileM, b.TileKMid, b.TileKLocal, b.TileN}
	return slices.Compare(ka[:], kb[:])
}
