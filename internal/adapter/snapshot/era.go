package snapshot

import (
	"fmt"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/csvio"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// Cutover is the first day published with the current schema.
var Cutover = time.Date(2020, time.March, 22, 0, 0, 0, 0, time.UTC)

// Era identifies one schema generation of the daily reports.
type Era int

const (
	// EraLegacy files carry running totals per country and province.
	EraLegacy Era = iota
	// EraCurrent files carry per-day counts down to county (Admin2) level.
	EraCurrent
)

func (e Era) String() string {
	switch e {
	case EraLegacy:
		return "legacy"
	case EraCurrent:
		return "current"
	default:
		return fmt.Sprintf("era(%d)", int(e))
	}
}

// EraFor selects the schema for a file by the date encoded in its name.
func EraFor(date time.Time) Era {
	if domain.Day(date).Before(Cutover) {
		return EraLegacy
	}
	return EraCurrent
}

// layout is the per-era column naming and record shape.
type layout struct {
	country    string
	province   string
	county     string // empty when the era has no county column
	confirmed  string
	deaths     string
	recovered  string
	cumulative bool
}

var layouts = map[Era]layout{
	EraLegacy: {
		country:    "Country/Region",
		province:   "Province/State",
		confirmed:  "Confirmed",
		deaths:     "Deaths",
		recovered:  "Recovered",
		cumulative: true,
	},
	EraCurrent: {
		country:   "Country_Region",
		province:  "Province_State",
		county:    "Admin2",
		confirmed: "Confirmed",
		deaths:    "Deaths",
		recovered: "Recovered",
	},
}

func (l layout) required() []string {
	cols := []string{l.country, l.province, l.confirmed, l.deaths, l.recovered}
	if l.county != "" {
		cols = append(cols, l.county)
	}
	return cols
}

// record builds one RawRecord from row, or an error for a row-level data problem.
func (l layout) record(header csvio.Header, row []string, date time.Time) (domain.RawRecord, error) {
	country := header.Get(row, l.country)
	if country == "" {
		return domain.RawRecord{}, domain.ErrMissingEntity
	}
	confirmed, err := csvio.ParseCount(header.Get(row, l.confirmed))
	if err != nil {
		return domain.RawRecord{}, fmt.Errorf("%s: %w", l.confirmed, err)
	}
	deaths, err := csvio.ParseCount(header.Get(row, l.deaths))
	if err != nil {
		return domain.RawRecord{}, fmt.Errorf("%s: %w", l.deaths, err)
	}

	keys := map[domain.Dimension]string{domain.DimCountry: country}
	if p := header.Get(row, l.province); p != "" {
		keys[domain.DimState] = p
	}
	if l.county != "" {
		if c := header.Get(row, l.county); c != "" {
			keys[domain.DimCounty] = c
		}
	}

	if l.cumulative {
		return domain.NewCumulative(keys, date, confirmed, deaths), nil
	}
	return domain.NewIncremental(keys, date, confirmed, deaths), nil
}

// discover registers the entities and links named in row.
func (l layout) discover(d *domain.Discovery, header csvio.Header, row []string) {
	country := header.Get(row, l.country)
	province := header.Get(row, l.province)
	d.Add(domain.DimCountry, country)
	d.Add(domain.DimState, province)
	d.Hierarchy(domain.DimCountry, domain.DimState).Link(country, province)
	if l.county == "" {
		return
	}
	county := header.Get(row, l.county)
	d.Add(domain.DimCounty, county)
	if province != "" {
		d.Hierarchy(domain.DimState, domain.DimCounty).Link(province, county)
	}
}
