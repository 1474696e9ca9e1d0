// Command validate reads the given sources through the same readers the
// ingestion run uses and checks the resulting datasets: every source must be
// readable, every aggregated series must satisfy the series invariants, and
// every hierarchy link must point at discovered entities.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -linelist data/RKI_COVID19.csv \
//	  -confirmed data/time_series_covid19_confirmed_global.csv \
//	  -deaths data/time_series_covid19_deaths_global.csv \
//	  -snapshot-dir data/csse_covid_19_daily_reports
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg := &config.Config{}
	flag.StringVar(&cfg.LinelistPath, "linelist", "", "line-list CSV")
	flag.StringVar(&cfg.AggregatePath, "aggregate", "", "aggregate feed CSV")
	flag.StringVar(&cfg.ConfirmedMatrixPath, "confirmed", "", "confirmed cases matrix CSV")
	flag.StringVar(&cfg.DeathsMatrixPath, "deaths", "", "deaths matrix CSV")
	flag.StringVar(&cfg.SnapshotDir, "snapshot-dir", "", "directory of daily report CSVs")
	verbose := flag.Bool("v", false, "log skipped rows")
	flag.Parse()

	if (cfg.ConfirmedMatrixPath == "") != (cfg.DeathsMatrixPath == "") {
		fmt.Fprintln(os.Stderr, "-confirmed and -deaths must be given together")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	sources := pipeline.SourcesFromConfig(cfg, logger)
	if len(sources) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(context.Background(), sources))
}

func run(ctx context.Context, sources []pipeline.Source) int {
	fmt.Println("=== Epidemiological Series Validation ===")
	fmt.Println()

	// ── Phase 1: read every source ──
	read := &phase{name: "Phase 1: Source Readability"}
	var datasets []domain.Dataset
	for _, src := range sources {
		res, err := src.Read(ctx)
		if err != nil {
			read.errorf("%s: %v", src.Name(), err)
			continue
		}
		fmt.Printf("  %-12s %d records, %d files, %d skipped rows\n", src.Name(), len(res.Records), res.Files, res.Skipped)
		datasets = append(datasets, domain.BuildDataset(res, src.Dimensions()...))
	}

	phases := []*phase{
		read,
		validateSeries(datasets),
		validateDiscovery(datasets),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 2: Series Invariants ──

func validateSeries(datasets []domain.Dataset) *phase {
	p := &phase{name: "Phase 2: Series Invariants"}
	for _, ds := range datasets {
		for _, dim := range sortedDims(ds.Series) {
			for _, id := range sortedIDs(ds.Series[dim]) {
				if err := domain.CheckSeries(ds.Series[dim][id], ds.FirstDate); err != nil {
					p.errorf("%s/%s: %v", ds.Source, dim, err)
				}
			}
		}
	}
	return p
}

// ── Phase 3: Discovery Consistency ──
// Every hierarchy parent and child must also be a discovered entity.

func validateDiscovery(datasets []domain.Dataset) *phase {
	p := &phase{name: "Phase 3: Discovery Consistency"}
	for _, ds := range datasets {
		for _, h := range ds.Discovery.Hierarchies {
			parents := ds.Discovery.Set(h.Parent)
			children := ds.Discovery.Set(h.Child)
			for parent, members := range h.Members {
				if !parents.Has(parent) {
					p.errorf("%s: %s %q linked but not discovered", ds.Source, h.Parent, parent)
				}
				for _, child := range members.Sorted() {
					if !children.Has(child) {
						p.errorf("%s: %s %q under %q linked but not discovered", ds.Source, h.Child, child, parent)
					}
				}
			}
		}
	}
	return p
}

func sortedDims(m map[domain.Dimension]map[string]domain.EntitySeries) []domain.Dimension {
	dims := make([]domain.Dimension, 0, len(m))
	for d := range m {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}

func sortedIDs(m map[string]domain.EntitySeries) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
