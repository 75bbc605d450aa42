// Package trimrange parses the offset ranges accepted by the trim command and
// resolves them against a track's start time.
package trimrange

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/planbiir/gpxtrim/internal/gpx"
)

// Range is a pair of offsets from the earliest track point time.
// The only implementations are DurationRange and ClockRange.
type Range interface {
	Offsets() (start, end time.Duration)
	isRange()
}

// DurationRange was written with unit suffixes, e.g. "5s,10m".
type DurationRange struct {
	Start, End time.Duration
}

func (r DurationRange) Offsets() (time.Duration, time.Duration) { return r.Start, r.End }
func (DurationRange) isRange()                                  {}

// ClockRange was written as clock readings, e.g. "00:05,1:02:03".
type ClockRange struct {
	Start, End time.Duration
}

func (r ClockRange) Offsets() (time.Duration, time.Duration) { return r.Start, r.End }
func (ClockRange) isRange()                                  {}

// Parse reads "A,B" where both parts are durations or both are clock values.
// If either part contains ':' both are read as clock values.
func Parse(s string) (Range, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range %q: must have exactly two parts separated by comma", s)
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	if strings.Contains(startStr, ":") || strings.Contains(endStr, ":") {
		start, err := ParseClock(startStr)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", s, err)
		}
		end, err := ParseClock(endStr)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", s, err)
		}
		return ClockRange{Start: start, End: end}, nil
	}

	start, err := ParseDuration(startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid range %q: %w", s, err)
	}
	end, err := ParseDuration(endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid range %q: %w", s, err)
	}
	return DurationRange{Start: start, End: end}, nil
}

var units = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
}

// ParseDuration reads "<integer><unit>" with unit one of s, m, h.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty duration")
	}

	unit, ok := units[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("invalid duration unit in %q (want s, m or h)", s)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d, ok := scale(n, unit)
	if !ok {
		return 0, fmt.Errorf("duration %q is out of range", s)
	}
	return d, nil
}

// ParseClock reads "MM:SS" or "H:MM:SS".
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q (want MM:SS or H:MM:SS)", s)
	}

	fields := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		fields[i] = n
	}

	var h, m, sec int64
	if len(fields) == 3 {
		h, m, sec = fields[0], fields[1], fields[2]
	} else {
		m, sec = fields[0], fields[1]
	}

	var total time.Duration
	for _, f := range []struct {
		n    int64
		unit time.Duration
	}{{h, time.Hour}, {m, time.Minute}, {sec, time.Second}} {
		d, ok := scale(f.n, f.unit)
		if !ok {
			return 0, fmt.Errorf("timestamp %q is out of range", s)
		}
		if total, ok = add(total, d); !ok {
			return 0, fmt.Errorf("timestamp %q is out of range", s)
		}
	}
	return total, nil
}

// scale returns n*unit, or false if it does not fit in a time.Duration.
func scale(n int64, unit time.Duration) (time.Duration, bool) {
	limit := math.MaxInt64 / int64(unit)
	if n > limit || n < -limit {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

func add(a, b time.Duration) (time.Duration, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// Resolve anchors r at origin and returns the half-open window to filter by.
func Resolve(r Range, origin time.Time) gpx.Window {
	switch r := r.(type) {
	case DurationRange:
		return gpx.Span{Start: origin.Add(r.Start), End: origin.Add(r.End)}
	case ClockRange:
		return gpx.Span{Start: origin.Add(r.Start), End: origin.Add(r.End)}
	default:
		panic(fmt.Sprintf("trimrange: unknown range type %T", r))
	}
}
