// Command genmock writes a deterministic set of input fixtures for every
// source format, then runs them through the real pipeline and writes the
// resulting chart frames as the expected-output fixture. Frame timestamps come
// from a fixed clock so the output is reproducible.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -days 14 -seed 7
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/chart"
	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/mockdata"
	"github.com/couchcryptid/epi-series-etl/internal/observability"
	"github.com/couchcryptid/epi-series-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

const framesFile = "frames.json"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := mockdata.DefaultOptions()
	out := flag.String("out", "", "output directory for the fixtures")
	start := flag.String("start", defaults.Start.Format(time.DateOnly), "first generated day (YYYY-MM-DD)")
	days := flag.Int("days", defaults.Days, "number of generated days")
	seed := flag.Uint64("seed", defaults.Seed, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	first, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	opts := mockdata.Options{Start: first, Days: *days, Seed: *seed}
	if err := mockdata.Generate(*out, opts); err != nil {
		return err
	}
	log.Printf("wrote fixtures for %d days starting %s to %s", opts.Days, *start, *out)

	// Fix GeneratedAt to the day after the last generated day.
	chart.SetClock(clockwork.NewFakeClockAt(first.AddDate(0, 0, opts.Days)))
	defer chart.SetClock(nil)

	frames, err := prepare(*out)
	if err != nil {
		return fmt.Errorf("preparing frames: %w", err)
	}
	if err := writeJSON(filepath.Join(*out, framesFile), frames); err != nil {
		return fmt.Errorf("writing frames fixture: %w", err)
	}
	log.Printf("wrote frames fixture: %s", filepath.Join(*out, framesFile))

	printStats(frames)
	return nil
}

func prepare(dir string) ([]chart.Frame, error) {
	cfg := &config.Config{
		LinelistPath:        filepath.Join(dir, mockdata.LinelistFile),
		AggregatePath:       filepath.Join(dir, mockdata.AggregateFile),
		ConfirmedMatrixPath: filepath.Join(dir, mockdata.ConfirmedFile),
		DeathsMatrixPath:    filepath.Join(dir, mockdata.DeathsFile),
		SnapshotDir:         filepath.Join(dir, mockdata.SnapshotDir),
		UNPopulationPath:    filepath.Join(dir, mockdata.UNFile),
		DEPopulationPath:    filepath.Join(dir, mockdata.DEFile),
		USPopulationPath:    filepath.Join(dir, mockdata.USFile),
	}
	charts, err := config.LoadCharts(filepath.Join(dir, mockdata.ChartsFile))
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(pipeline.SourcesFromConfig(cfg, logger), charts, cfg.PopulationPaths(), nil,
		logger, observability.NewMetricsForTesting())
	report, err := p.Run(context.Background())
	if err != nil {
		return nil, err
	}
	return report.Frames, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func printStats(frames []chart.Frame) {
	fmt.Println("\n=== Frame Summary ===")
	for _, f := range frames {
		points := 0
		for _, l := range f.Lines {
			points += len(l.X)
		}
		fmt.Printf("  %-22s %d lines, %d points, %d omitted (%s)\n", f.Name, len(f.Lines), points, len(f.Omitted), f.Scale)
	}
}
