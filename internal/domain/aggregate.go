package domain

import (
	"sort"
	"time"
)

// ReadResult is everything a source reader produces for one input.
type ReadResult struct {
	Source    string
	Records   []RawRecord
	Discovery Discovery
	// Skipped counts rows or cells dropped as row-level data errors.
	Skipped int
	// Files counts the input files consumed.
	Files int
	// Earliest is the first date the input declares (a date column or a
	// dated file), even when no row on that date parsed. Zero when the
	// input has no such notion.
	Earliest time.Time
}

// Dataset holds the normalized series of one ingestion run of one source.
type Dataset struct {
	Source    string
	FirstDate time.Time
	Series    map[Dimension]map[string]EntitySeries
	Discovery Discovery
}

// Entity returns the series for id on dim.
func (d Dataset) Entity(dim Dimension, id string) (EntitySeries, bool) {
	s, ok := d.Series[dim][id]
	return s, ok
}

// FirstDate returns the earliest record date, or the zero time for no records.
func FirstDate(records []RawRecord) time.Time {
	var first time.Time
	for i := range records {
		d := records[i].Date
		if d.IsZero() {
			continue
		}
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}
	return Day(first)
}

// BuildDataset computes the first global date once and aggregates every
// requested dimension over the entities the reader discovered for it.
// Records are split by count kind so each Aggregate call sees one kind; an
// entity observed in both is joined into a single series.
func BuildDataset(res ReadResult, dims ...Dimension) Dataset {
	first := FirstDate(res.Records)
	if e := Day(res.Earliest); !res.Earliest.IsZero() && (first.IsZero() || e.Before(first)) {
		first = e
	}
	ds := Dataset{
		Source:    res.Source,
		FirstDate: first,
		Series:    make(map[Dimension]map[string]EntitySeries, len(dims)),
		Discovery: res.Discovery,
	}
	cumulative, incremental := splitKinds(res.Records)
	for _, dim := range dims {
		ids := res.Discovery.Set(dim)
		ds.Series[dim] = joinKinds(
			Aggregate(dim, ids, cumulative, first),
			Aggregate(dim, ids, incremental, first),
		)
	}
	return ds
}

func splitKinds(records []RawRecord) (cumulative, incremental []RawRecord) {
	for i := range records {
		if records[i].Incremental != nil {
			incremental = append(incremental, records[i])
		} else {
			cumulative = append(cumulative, records[i])
		}
	}
	return cumulative, incremental
}

// joinKinds merges the per-kind results. For an entity present in both, the
// part that starts first is kept whole and the other continues it.
func joinKinds(a, b map[string]EntitySeries) map[string]EntitySeries {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	out := make(map[string]EntitySeries, len(a)+len(b))
	for id, s := range a {
		out[id] = s
	}
	for id, s := range b {
		prev, ok := out[id]
		if !ok {
			out[id] = s
			continue
		}
		if s.Dates[0].Before(prev.Dates[0]) {
			prev, s = s, prev
		}
		out[id] = continueSeries(prev, s)
	}
	return out
}

// continueSeries appends the days of next that fall after the last day of
// prev. Running totals built from per-day counts are rebased onto the final
// totals of prev; reported totals are kept as reported. The joined series
// carries no per-day columns because one of its parts has none.
func continueSeries(prev, next EntitySeries) EntitySeries {
	n := prev.Len()
	last := prev.Dates[n-1]
	start := sort.Search(next.Len(), func(i int) bool { return next.Dates[i].After(last) })
	m := n + next.Len() - start

	out := EntitySeries{
		Entity:     prev.Entity,
		Dates:      make([]time.Time, 0, m),
		DaysPassed: make([]int, 0, m),
		CumCases:   make([]int64, 0, m),
		CumDeaths:  make([]int64, 0, m),
	}
	out.Dates = append(append(out.Dates, prev.Dates...), next.Dates[start:]...)
	out.DaysPassed = append(append(out.DaysPassed, prev.DaysPassed...), next.DaysPassed[start:]...)
	out.CumCases = append(out.CumCases, prev.CumCases...)
	out.CumDeaths = append(out.CumDeaths, prev.CumDeaths...)

	var base, dropped Counts
	if next.Incremental() {
		base = Counts{Cases: prev.CumCases[n-1], Deaths: prev.CumDeaths[n-1]}
		if start > 0 {
			dropped = Counts{Cases: next.CumCases[start-1], Deaths: next.CumDeaths[start-1]}
		}
	}
	for i := start; i < next.Len(); i++ {
		out.CumCases = append(out.CumCases, base.Cases+next.CumCases[i]-dropped.Cases)
		out.CumDeaths = append(out.CumDeaths, base.Deaths+next.CumDeaths[i]-dropped.Deaths)
	}
	return out
}

type dayTotals struct {
	date        time.Time
	incremental Counts
	cumulative  Counts
}

// Aggregate builds one EntitySeries per id in ids from the records keyed on
// dim. Records sharing a date are summed. The first record seen for an entity
// (in date order) fixes whether its series is built from per-day counts or
// from running totals; records of the other kind are ignored, so callers
// holding both kinds split them first as [BuildDataset] does. Entities
// without any matching record are left out of the result.
func Aggregate(dim Dimension, ids EntitySet, records []RawRecord, first time.Time) map[string]EntitySeries {
	selected := make(map[string][]*RawRecord, len(ids))
	for i := range records {
		r := &records[i]
		id, ok := r.Key(dim)
		if !ok || !ids.Has(id) {
			continue
		}
		selected[id] = append(selected[id], r)
	}

	out := make(map[string]EntitySeries, len(selected))
	for id, recs := range selected {
		if s, ok := aggregateEntity(id, recs, Day(first)); ok {
			out[id] = s
		}
	}
	return out
}

func aggregateEntity(id string, recs []*RawRecord, first time.Time) (EntitySeries, bool) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	incremental := recs[0].Incremental != nil

	var days []*dayTotals
	byDate := make(map[time.Time]*dayTotals)
	for _, r := range recs {
		if (r.Incremental != nil) != incremental {
			continue
		}
		dt, ok := byDate[r.Date]
		if !ok {
			dt = &dayTotals{date: r.Date}
			byDate[r.Date] = dt
			days = append(days, dt)
		}
		if incremental {
			dt.incremental.Cases += r.Incremental.Cases
			dt.incremental.Deaths += r.Incremental.Deaths
		} else {
			dt.cumulative.Cases += r.Cumulative.Cases
			dt.cumulative.Deaths += r.Cumulative.Deaths
		}
	}
	if len(days) == 0 {
		return EntitySeries{}, false
	}

	n := len(days)
	s := EntitySeries{
		Entity:     id,
		Dates:      make([]time.Time, n),
		DaysPassed: make([]int, n),
		CumCases:   make([]int64, n),
		CumDeaths:  make([]int64, n),
	}
	if incremental {
		s.NewCases = make([]int64, n)
		s.NewDeaths = make([]int64, n)
	}

	var running Counts
	for i, dt := range days {
		s.Dates[i] = dt.date
		s.DaysPassed[i] = DaysBetween(first, dt.date)
		if incremental {
			running.Cases += dt.incremental.Cases
			running.Deaths += dt.incremental.Deaths
			s.NewCases[i] = dt.incremental.Cases
			s.NewDeaths[i] = dt.incremental.Deaths
			s.CumCases[i] = running.Cases
			s.CumDeaths[i] = running.Deaths
			continue
		}
		s.CumCases[i] = dt.cumulative.Cases
		s.CumDeaths[i] = dt.cumulative.Deaths
	}
	return s, true
}
