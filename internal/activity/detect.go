package activity

import (
	"errors"

	"github.com/planbiir/gpxtrim/internal/gpx"
)

// ErrTooFewPoints is returned when no speed can be computed.
var ErrTooFewPoints = errors.New("need at least 2 track points for activity detection")

// Detect finds the period of sustained movement in points.
//
// A bound only moves once ConfirmationRun consecutive speeds reach
// cfg.SpeedThreshold, so isolated GPS jumps are ignored. A side with no such
// run is not trimmed.
func Detect(points []gpx.TrackPoint, cfg Config) (Bounds, error) {
	if len(points) < 2 {
		return Bounds{}, ErrTooFewPoints
	}

	// speeds[i] is the speed from points[i-1] to points[i]; speeds[0] is unused.
	speeds := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		speeds[i] = Speed(points[i-1], points[i])
	}

	startIdx, endIdx := 0, len(points)-1

	run := 0
	for i := 1; i < len(speeds); i++ {
		if speeds[i] < cfg.SpeedThreshold {
			run = 0
			continue
		}
		run++
		if run == ConfirmationRun {
			startIdx = i - ConfirmationRun + 1
			break
		}
	}

	run = 0
	runEnd := 0
	for i := len(speeds) - 1; i >= 1; i-- {
		if speeds[i] < cfg.SpeedThreshold {
			run = 0
			continue
		}
		if run == 0 {
			runEnd = i
		}
		run++
		if run == ConfirmationRun {
			endIdx = runEnd
			break
		}
	}

	return Bounds{
		StartIndex: startIdx,
		EndIndex:   endIdx,
		Start:      points[startIdx].Time.Add(-cfg.Buffer),
		End:        points[endIdx].Time.Add(cfg.Buffer),
	}, nil
}
