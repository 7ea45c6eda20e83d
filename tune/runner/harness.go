package runner

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	// ErrLatencyMissing means a latency label was absent from the harness output.
	ErrLatencyMissing = errors.New("latency label missing from harness output")
	// ErrMalformedLatency means the labels were present but the values are unusable.
	ErrMalformedLatency = errors.New("malformed latency in harness output")
	// ErrTimeout means an external step ran past its deadline.
	ErrTimeout = errors.New("external step timed out")
)

// Latency holds the statistics printed by the hardware test harness.
type Latency struct {
	Avg float64
	Max float64
	Min float64
}

// HarnessFormat is a versioned contract for scraping the harness console output.
// If the harness changes its wording, parsing fails instead of guessing.
type HarnessFormat struct {
	Version string
	avg     *regexp.Regexp
	max     *regexp.Regexp
	min     *regexp.Regexp
}

func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(label) + `(\d+(?:\.\d+)?)`)
}

// HarnessV1 matches "Avg NPU matmul time: 123.4us" style lines.
var HarnessV1 = HarnessFormat{
	Version: "v1",
	avg:     labelPattern("Avg NPU matmul time: "),
	max:     labelPattern("Max NPU matmul time: "),
	min:     labelPattern("Min NPU matmul time: "),
}

// Parse extracts the three latency fields. The first occurrence of each label wins.
func (h HarnessFormat) Parse(text string) (Latency, error) {
	var vals [3]float64
	for i, f := range []struct {
		name string
		re   *regexp.Regexp
	}{{"avg", h.avg}, {"max", h.max}, {"min", h.min}} {
		m := f.re.FindStringSubmatch(text)
		if m == nil {
			return Latency{}, fmt.Errorf("%w: %s (harness format %s)", ErrLatencyMissing, f.name, h.Version)
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Latency{}, fmt.Errorf("%w: %s=%q: %v", ErrMalformedLatency, f.name, m[1], err)
		}
		vals[i] = v
	}
	lat := Latency{Avg: vals[0], Max: vals[1], Min: vals[2]}
	if lat.Min > lat.Max {
		return Latency{}, fmt.Errorf("%w: min %v > max %v", ErrMalformedLatency, lat.Min, lat.Max)
	}
	return lat, nil
}
