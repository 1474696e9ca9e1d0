package domain

import (
	"errors"
	"time"
)

// Dimension names one axis an entity can be keyed on. The well-known values
// are declared below but any non-empty string is accepted.
type Dimension string

const (
	DimCountry  Dimension = "country"
	DimState    Dimension = "state"
	DimCounty   Dimension = "county"
	DimAgeGroup Dimension = "age_group"
	DimSex      Dimension = "sex"
)

var (
	ErrNoCounts       = errors.New("record carries neither incremental nor cumulative counts")
	ErrBothCounts     = errors.New("record carries both incremental and cumulative counts")
	ErrNegativeCount  = errors.New("record carries a negative count")
	ErrMissingEntity  = errors.New("record carries no entity keys")
	ErrMissingRecDate = errors.New("record has no date")
)

// Counts is a case/death pair. Whether it is per-day or running depends on
// which RawRecord field holds it.
type Counts struct {
	Cases  int64 `json:"cases"`
	Deaths int64 `json:"deaths"`
}

// RawRecord is one observation of an entity on one calendar day, as emitted
// by a source reader. Exactly one of Incremental and Cumulative is set.
type RawRecord struct {
	Keys        map[Dimension]string
	Date        time.Time
	Incremental *Counts
	Cumulative  *Counts
}

// NewIncremental builds a record holding per-day counts.
func NewIncremental(keys map[Dimension]string, date time.Time, cases, deaths int64) RawRecord {
	return RawRecord{Keys: keys, Date: Day(date), Incremental: &Counts{Cases: cases, Deaths: deaths}}
}

// NewCumulative builds a record holding running totals.
func NewCumulative(keys map[Dimension]string, date time.Time, cases, deaths int64) RawRecord {
	return RawRecord{Keys: keys, Date: Day(date), Cumulative: &Counts{Cases: cases, Deaths: deaths}}
}

// Validate checks the record model invariants.
func (r RawRecord) Validate() error {
	switch {
	case len(r.Keys) == 0:
		return ErrMissingEntity
	case r.Date.IsZero():
		return ErrMissingRecDate
	case r.Incremental == nil && r.Cumulative == nil:
		return ErrNoCounts
	case r.Incremental != nil && r.Cumulative != nil:
		return ErrBothCounts
	}
	c := r.counts()
	if c.Cases < 0 || c.Deaths < 0 {
		return ErrNegativeCount
	}
	return nil
}

// Key returns the record's value for dim and whether it is present.
func (r RawRecord) Key(dim Dimension) (string, bool) {
	v, ok := r.Keys[dim]
	return v, ok && v != ""
}

func (r RawRecord) counts() Counts {
	if r.Incremental != nil {
		return *r.Incremental
	}
	if r.Cumulative != nil {
		return *r.Cumulative
	}
	return Counts{}
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
