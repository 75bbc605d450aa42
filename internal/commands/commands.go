// Package commands wires the scanners, the activity detector and the filter
// into the operations exposed by the gpxtrim binary.
package commands

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/planbiir/gpxtrim/internal/activity"
	"github.com/planbiir/gpxtrim/internal/gpx"
	"github.com/planbiir/gpxtrim/internal/trimrange"
)

// Report summarises one run for --stats.
type Report struct {
	Command     string `json:"command"`
	Passthrough bool   `json:"passthrough"`
	Window      string `json:"window,omitempty"`
	Points      int    `json:"points"`
	Kept        int    `json:"kept"`
	Dropped     int    `json:"dropped"`
}

// Trim keeps the points inside r, measured from the earliest point time.
// Documents without any timestamped point are copied through unchanged.
func Trim(w io.Writer, input []byte, r trimrange.Range, logger *zap.SugaredLogger) (Report, error) {
	logger = orNop(logger)
	report := Report{Command: "trim"}

	origin, ok, err := gpx.MinTime(input)
	if err != nil {
		return report, fmt.Errorf("failed to scan track times: %w", err)
	}
	if !ok {
		logger.Info("no timestamped track points, passing input through")
		return passthrough(w, input, report)
	}

	win := trimrange.Resolve(r, origin)
	logger.Debugf("track starts at %s, trimming to %s", origin.Format(time.RFC3339), win)
	return filter(w, input, win, report, logger)
}

// TrimToActivity keeps the points inside the detected activity period.
// Documents without any complete sample are copied through unchanged.
func TrimToActivity(w io.Writer, input []byte, cfg activity.Config, logger *zap.SugaredLogger) (Report, error) {
	logger = orNop(logger)
	report := Report{Command: "trim-to-activity"}

	points, err := gpx.Extract(input)
	if err != nil {
		return report, fmt.Errorf("failed to extract track points: %w", err)
	}
	if len(points) == 0 {
		logger.Info("no complete track points, passing input through")
		return passthrough(w, input, report)
	}

	bounds, err := activity.Detect(points, cfg)
	if err != nil {
		return report, fmt.Errorf("failed to detect activity: %w", err)
	}
	logger.Debugf("activity spans samples %d..%d of %d (threshold %.2f m/s, buffer %v)",
		bounds.StartIndex, bounds.EndIndex, len(points), cfg.SpeedThreshold, cfg.Buffer)

	return filter(w, input, bounds.Window(), report, logger)
}

func filter(w io.Writer, input []byte, win gpx.Window, report Report, logger *zap.SugaredLogger) (Report, error) {
	report.Window = win.String()

	stats, err := gpx.Filter(w, input, win)
	if err != nil {
		return report, fmt.Errorf("failed to filter track: %w", err)
	}
	report.Points = stats.Points
	report.Kept = stats.Kept
	report.Dropped = stats.Dropped()

	if stats.Points > 0 && stats.Kept == 0 {
		logger.Warnf("no track points fall inside %s", win)
	}
	logger.Debugf("kept %d of %d track points", stats.Kept, stats.Points)
	return report, nil
}

func passthrough(w io.Writer, input []byte, report Report) (Report, error) {
	report.Passthrough = true
	if _, err := w.Write(input); err != nil {
		return report, fmt.Errorf("failed to write output: %w", err)
	}
	return report, nil
}

func orNop(logger *zap.SugaredLogger) *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
