package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/herdtune/herdtune/tune"
)

// Record is one evaluated candidate as written to the ledger.
type Record struct {
	Config tune.TileConfig
	Result tune.Result
}

func (r Record) fields(withPassed bool) []string {
	c := r.Config
	row := []string{
		strconv.Itoa(c.M),
		strconv.Itoa(c.K),
		strconv.Itoa(c.N),
		strconv.Itoa(c.TileM),
		strconv.Itoa(c.TileKMid),
		strconv.Itoa(c.TileKLocal),
		strconv.Itoa(c.TileN),
		strconv.FormatFloat(r.Result.LatencyAvg, 'f', -1, 64),
		strconv.FormatFloat(r.Result.LatencyMax, 'f', -1, 64),
		strconv.FormatFloat(r.Result.LatencyMin, 'f', -1, 64),
	}
	if withPassed {
		row = append(row, strconv.FormatBool(r.Result.Passed))
	}
	return row
}

// Appender writes ledger records one at a time. Every Append is a single write
// of a complete CSV line followed by an fsync, so a crash leaves only whole rows.
// It is safe for concurrent use; appends are serialized.
type Appender struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	withPassed bool
	count      int
}

// Create truncates path and writes the header.
func Create(path string, withPassed bool) (*Appender, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating ledger %s: %w", path, err)
	}
	a := &Appender{file: file, path: path, withPassed: withPassed}
	if err := a.writeLine(Columns(withPassed)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("writing ledger header: %w", err)
	}
	syncDir(path)
	return a, nil
}

// OpenAppend opens path for appending without discarding existing rows.
// An empty or missing file gets a header; an existing header must match the
// expected columns. A partial trailing line left by an interrupted writer is cut off;
// a complete row that only lacks its newline is kept.
func OpenAppend(path string, withPassed bool) (*Appender, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	a := &Appender{file: file, path: path, withPassed: withPassed}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat ledger %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := a.writeLine(Columns(withPassed)); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("writing ledger header: %w", err)
		}
		syncDir(path)
		return a, nil
	}
	if err := trimPartialTail(file, info.Size()); err != nil {
		_ = file.Close()
		return nil, err
	}
	if err := checkHeader(file, Columns(withPassed)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("ledger %s: %w", path, err)
	}
	return a, nil
}

func checkHeader(file *os.File, want []string) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seeking ledger: %w", err)
	}
	header, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	got := make([]string, len(header))
	for i, h := range header {
		got[i] = canonical(h)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("header %v does not match expected columns %v", header, want)
	}
	return nil
}

// trimPartialTail makes the file end in a newline. A last line that parses as a
// complete row gets its missing newline; anything else is truncated back to the
// previous newline.
func trimPartialTail(file *os.File, size int64) error {
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("reading ledger tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	buf := make([]byte, size)
	if _, err := file.ReadAt(buf, 0); err != nil && err != io.EOF {
		return fmt.Errorf("reading ledger: %w", err)
	}
	cut := bytes.LastIndexByte(buf, '\n') + 1
	if completeTail(buf, cut) {
		logrus.Debugf("Ledger %s: terminating last row", file.Name())
		if _, err := file.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("terminating last row: %w", err)
		}
		return file.Sync()
	}
	logrus.Warnf("Ledger %s ends with a partial row, truncating %d bytes", file.Name(), len(buf)-cut)
	if err := file.Truncate(int64(cut)); err != nil {
		return fmt.Errorf("truncating partial row: %w", err)
	}
	return file.Sync()
}

// Append durably writes one record.
func (a *Appender) Append(rec Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeLine(rec.fields(a.withPassed)); err != nil {
		return fmt.Errorf("appending %v: %w", rec.Config, err)
	}
	a.count++
	return nil
}

func (a *Appender) writeLine(fields []string) error {
	if a.file == nil {
		return os.ErrClosed
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if _, err := a.file.Write(buf.Bytes()); err != nil {
		return err
	}
	return a.file.Sync()
}

// Count is the number of records appended through this Appender.
func (a *Appender) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Path returns the file being written.
func (a *Appender) Path() string { return a.path }

// WithPassed reports whether rows carry the passed column.
func (a *Appender) WithPassed() bool { return a.withPassed }

// Close closes the underlying file.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// syncDir flushes the directory entry of a newly created file. Best effort.
func syncDir(path string) {
	dir, err := os.Open(filepath.Dir(path))
	if err != nil {
		return
	}
	_ = dir.Sync()
	_ = dir.Close()
}
