package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvariant marks a series that violates the canonical series shape.
var ErrInvariant = errors.New("series invariant violated")

// CheckSeries verifies the structural guarantees of an aggregated series
// against the first global date it was built with. Decreasing running totals
// in a cumulative-only series are not reported: publishers revise totals
// downwards and the series keeps their values as published.
func CheckSeries(s EntitySeries, first time.Time) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvariant, s.Entity, fmt.Sprintf(format, args...)))
	}

	n := s.Len()
	if n == 0 {
		fail("empty series")
		return errors.Join(errs...)
	}
	if len(s.DaysPassed) != n || len(s.CumCases) != n || len(s.CumDeaths) != n {
		fail("column lengths differ from %d dates", n)
		return errors.Join(errs...)
	}
	if s.Incremental() && (len(s.NewCases) != n || len(s.NewDeaths) != n) {
		fail("per-day column lengths differ from %d dates", n)
		return errors.Join(errs...)
	}

	first = Day(first)
	var running Counts
	for i := 0; i < n; i++ {
		if i > 0 && !s.Dates[i].After(s.Dates[i-1]) {
			fail("date %s not after %s", s.Dates[i].Format(time.DateOnly), s.Dates[i-1].Format(time.DateOnly))
		}
		if want := DaysBetween(first, s.Dates[i]); s.DaysPassed[i] != want {
			fail("days_passed[%d] = %d, want %d", i, s.DaysPassed[i], want)
		}
		if !s.Incremental() {
			continue
		}
		running.Cases += s.NewCases[i]
		running.Deaths += s.NewDeaths[i]
		if s.CumCases[i] != running.Cases || s.CumDeaths[i] != running.Deaths {
			fail("running totals at %s do not match per-day sums", s.Dates[i].Format(time.DateOnly))
		}
	}
	return errors.Join(errs...)
}
