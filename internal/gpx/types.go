package gpx

import (
	"fmt"
	"time"
)

// TrackPoint is one complete GPS sample taken from a <trkpt> element.
// It is only produced when lat, lon and time all parse.
type TrackPoint struct {
	Lat  float64
	Lon  float64
	Time time.Time
}

// Window decides which track points survive a Filter pass.
// The only implementations are Span and Until.
type Window interface {
	Contains(t time.Time) bool
	String() string
	window()
}

// Span is the half-open window [Start, End).
type Span struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether Start <= t < End.
func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

func (s Span) String() string {
	return fmt.Sprintf("[%s, %s)", s.Start.Format(time.RFC3339Nano), s.End.Format(time.RFC3339Nano))
}

func (Span) window() {}

// Until keeps everything at or before Threshold.
//
// Unlike Span the bound is inclusive.
type Until struct {
	Threshold time.Time
}

// Contains reports whether t <= Threshold.
func (u Until) Contains(t time.Time) bool {
	return !t.After(u.Threshold)
}

func (u Until) String() string {
	return fmt.Sprintf("(-inf, %s]", u.Threshold.Format(time.RFC3339Nano))
}

func (Until) window() {}

// FilterStats counts the track points seen and kept by Filter.
type FilterStats struct {
	Points int `json:"points"`
	Kept   int `json:"kept"`
}

// Dropped returns the number of points removed from the document.
func (s FilterStats) Dropped() int {
	return s.Points - s.Kept
}

// ParseError reports XML that could not be tokenized.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed XML at byte offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
