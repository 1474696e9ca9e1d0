package domain

import (
	"errors"
	"fmt"
	"time"
)

// Field names accepted by EntitySeries.Field.
const (
	FieldDate       = "date"
	FieldDaysPassed = "days_passed"
	FieldNewCases   = "new_cases"
	FieldCumCases   = "cum_cases"
	FieldNewDeaths  = "new_deaths"
	FieldCumDeaths  = "cum_deaths"
)

var (
	ErrUnknownField     = errors.New("unknown series field")
	ErrFieldUnavailable = errors.New("series field not available for this source")
)

// EntitySeries is the canonical per-entity time series. All slices share one
// index; NewCases and NewDeaths are nil when the source only supplied
// cumulative totals.
type EntitySeries struct {
	Entity     string      `json:"entity"`
	Dates      []time.Time `json:"date"`
	DaysPassed []int       `json:"days_passed"`
	NewCases   []int64     `json:"new_cases,omitempty"`
	NewDeaths  []int64     `json:"new_deaths,omitempty"`
	CumCases   []int64     `json:"cum_cases"`
	CumDeaths  []int64     `json:"cum_deaths"`
}

// Len returns the number of observed days.
func (s EntitySeries) Len() int { return len(s.Dates) }

// Incremental reports whether per-day counts are available.
func (s EntitySeries) Incremental() bool { return s.NewCases != nil }

// Field returns the named count column as float64 values. The date column is
// returned as days since the Unix epoch; use Dates for calendar values.
func (s EntitySeries) Field(name string) ([]float64, error) {
	switch name {
	case FieldDate:
		out := make([]float64, len(s.Dates))
		for i, d := range s.Dates {
			out[i] = float64(DaysBetween(time.Unix(0, 0).UTC(), d))
		}
		return out, nil
	case FieldDaysPassed:
		out := make([]float64, len(s.DaysPassed))
		for i, v := range s.DaysPassed {
			out[i] = float64(v)
		}
		return out, nil
	case FieldNewCases:
		return counts(s.NewCases, name)
	case FieldNewDeaths:
		return counts(s.NewDeaths, name)
	case FieldCumCases:
		return counts(s.CumCases, name)
	case FieldCumDeaths:
		return counts(s.CumDeaths, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

func counts(values []int64, name string) ([]float64, error) {
	if values == nil {
		return nil, fmt.Errorf("%w: %s", ErrFieldUnavailable, name)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
