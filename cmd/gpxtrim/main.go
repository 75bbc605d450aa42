package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/planbiir/gpxtrim/internal/activity"
	"github.com/planbiir/gpxtrim/internal/commands"
	"github.com/planbiir/gpxtrim/internal/trimrange"
)

const version = "v1.0.0"

// maxBufferSeconds is the largest --buffer that fits in a time.Duration.
const maxBufferSeconds = uint64(math.MaxInt64 / int64(time.Second))

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := newApp(stdin, stdout, stderr).Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	defaults := activity.DefaultConfig()

	return &cli.App{
		Name:      "gpxtrim",
		Usage:     "Trim GPX track points to a time range or to the detected activity",
		Version:   version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Read GPX from `FILE` instead of stdin",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write GPX to `FILE` instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Print trimming statistics as JSON to stderr",
			},
			// -v is taken by --version.
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log diagnostics to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:        "trim",
				Usage:       "Trim GPX track points using duration or timestamp ranges",
				ArgsUsage:   "[--] <RANGE>",
				Description: "RANGE is DUR1,DUR2 (e.g. 5s,10s) or TS1,TS2 (e.g. 00:05,01:30),\nmeasured from the earliest track point time. The end is exclusive.\nPut -- before a range that starts with a negative offset, e.g. -- -5s,10s.",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("trim expects exactly one RANGE argument, got %d", c.NArg())
					}
					r, err := trimrange.Parse(c.Args().First())
					if err != nil {
						return err
					}
					return execute(c, func(w io.Writer, input []byte, logger *zap.SugaredLogger) (commands.Report, error) {
						return commands.Trim(w, input, r, logger)
					})
				},
			},
			{
				Name:  "trim-to-activity",
				Usage: "Trim GPX to the detected activity period based on speed analysis",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:    "speed-threshold",
						Aliases: []string{"s"},
						Value:   defaults.SpeedThreshold,
						Usage:   "Minimum speed (m/s) to consider as activity",
					},
					&cli.Uint64Flag{
						Name:    "buffer",
						Aliases: []string{"b"},
						Value:   uint64(defaults.Buffer / time.Second),
						Usage:   "Buffer time (seconds) to add before/after detected activity",
					},
				},
				Action: func(c *cli.Context) error {
					secs := c.Uint64("buffer")
					if secs > maxBufferSeconds {
						return fmt.Errorf("buffer of %d seconds is out of range", secs)
					}
					cfg := activity.Config{
						SpeedThreshold: c.Float64("speed-threshold"),
						Buffer:         time.Duration(secs) * time.Second,
					}
					if math.IsNaN(cfg.SpeedThreshold) {
						return errors.New("speed threshold must be a number")
					}
					return execute(c, func(w io.Writer, input []byte, logger *zap.SugaredLogger) (commands.Report, error) {
						return commands.TrimToActivity(w, input, cfg, logger)
					})
				},
			},
		},
	}
}

type commandFunc func(w io.Writer, input []byte, logger *zap.SugaredLogger) (commands.Report, error)

// execute reads the whole input, runs fn, and only then writes the output,
// so a failed run never leaves a truncated document behind.
func execute(c *cli.Context, fn commandFunc) error {
	logger := newLogger(c.App.ErrWriter, c.Bool("verbose"))
	defer func() { _ = logger.Sync() }()

	input, err := readInput(c.String("input"), c.App.Reader)
	if err != nil {
		return err
	}
	logger.Debugf("read %d bytes", len(input))

	var out bytes.Buffer
	out.Grow(len(input))
	report, err := fn(&out, input, logger)
	if err != nil {
		return err
	}

	if err := writeOutput(c.String("output"), c.App.Writer, out.Bytes()); err != nil {
		return err
	}

	if c.Bool("stats") {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		fmt.Fprintln(c.App.ErrWriter, string(data))
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write stdout: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
