package activity

import (
	"time"

	"github.com/planbiir/gpxtrim/internal/gpx"
)

// ConfirmationRun is how many consecutive speeds at or above the threshold
// are needed before movement counts as activity.
const ConfirmationRun = 3

// Config holds activity detection parameters
type Config struct {
	SpeedThreshold float64       // m/s - speeds >= this count as moving
	Buffer         time.Duration // padding added before start and after end
}

// DefaultConfig returns the command-line defaults
func DefaultConfig() Config {
	return Config{
		SpeedThreshold: 1.0,              // 3.6 km/h - slow walk
		Buffer:         30 * time.Second, // keep a little lead-in and cool-down
	}
}

// Bounds is the detected activity period.
type Bounds struct {
	StartIndex int       // first sample of the activity
	EndIndex   int       // last sample of the activity
	Start      time.Time // sample time minus buffer
	End        time.Time // sample time plus buffer
}

// Window returns the bounds as the half-open window the filter applies.
func (b Bounds) Window() gpx.Window {
	return gpx.Span{Start: b.Start, End: b.End}
}
