// Package mockdata writes a small, deterministic set of input files in every
// format the readers accept: a line list, an aggregate feed, a matrix pair,
// a snapshot archive spanning the schema cutover, three population tables and
// a chart definition file. The same options always produce the same bytes.
package mockdata

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/chart"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/population"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// File names written into the output directory.
const (
	LinelistFile  = "linelist.csv"
	AggregateFile = "aggregate.csv"
	ConfirmedFile = "confirmed.csv"
	DeathsFile    = "deaths.csv"
	SnapshotDir   = "daily"
	UNFile        = "population_un.csv"
	DEFile        = "population_de.csv"
	USFile        = "population_us.csv"
	ChartsFile    = "charts.yaml"
)

// Options controls the generated time span.
type Options struct {
	Start time.Time
	Days  int
	Seed  uint64
}

// DefaultOptions spans the snapshot schema cutover.
func DefaultOptions() Options {
	return Options{Start: time.Date(2020, time.March, 18, 0, 0, 0, 0, time.UTC), Days: 8, Seed: 1}
}

type country struct {
	geoID, name string
	provinces   []string
	millions    float64
}

type state struct {
	name     string
	counties []string
	persons  int
}

var (
	countries = []country{
		{geoID: "IT", name: "Italy", millions: 60.55},
		{geoID: "DE", name: "Germany", millions: 83.52},
		{geoID: "AU", name: "Australia", provinces: []string{"Queensland", "Victoria"}, millions: 25.2},
	}
	deStates = []state{
		{name: "Bayern", counties: []string{"LK Passau", "SK München"}, persons: 13124737},
		{name: "Thüringen", counties: []string{"SK Erfurt"}, persons: 2143145},
	}
	usStates = []state{
		{name: "Washington", counties: []string{"King", "Snohomish"}, persons: 7614893},
		{name: "New York", counties: []string{"Westchester"}, persons: 19453561},
	}
	ageGroups = []string{"A15-A34", "A35-A59", "A60-A79", "unbekannt"}
	sexes     = []string{"M", "W", "unbekannt"}
)

// Generate writes every fixture into dir.
func Generate(dir string, opts Options) error {
	if opts.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", opts.Days)
	}
	g := &generator{opts: opts, rng: rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))}
	steps := []struct {
		name string
		fn   func(string) error
	}{
		{LinelistFile, g.linelist},
		{AggregateFile, g.aggregate},
		{ConfirmedFile, g.matrices},
		{SnapshotDir, g.snapshots},
		{UNFile, g.unPopulation},
		{DEFile, g.dePopulation},
		{USFile, g.usPopulation},
		{ChartsFile, g.charts},
	}
	for _, s := range steps {
		if err := s.fn(dir); err != nil {
			return fmt.Errorf("generate %s: %w", s.name, err)
		}
	}
	return nil
}

type generator struct {
	opts Options
	rng  *rand.Rand
}

func (g *generator) day(i int) time.Time { return g.opts.Start.AddDate(0, 0, i) }

// daily returns a plausible per-day count growing with i.
func (g *generator) daily(i, scale int) int {
	return g.rng.IntN(scale*(i+1)) + i
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func itoa(v int) string { return strconv.Itoa(v) }

func (g *generator) linelist(dir string) error {
	rows := [][]string{{"ObjectId", "Bundesland", "Landkreis", "Altersgruppe", "Geschlecht", "AnzahlFall", "AnzahlTodesfall", "Meldedatum"}}
	id := 1
	for i := 0; i < g.opts.Days; i++ {
		reported := g.day(i).Format("2006/01/02") + " 00:00:00"
		for _, st := range deStates {
			for _, county := range st.counties {
				for _, age := range ageGroups {
					cases := g.daily(i, 3)
					deaths := 0
					if age == "A60-A79" && cases > 2 {
						deaths = g.rng.IntN(2)
					}
					sex := sexes[g.rng.IntN(len(sexes))]
					rows = append(rows, []string{itoa(id), st.name, county, age, sex, itoa(cases), itoa(deaths), reported})
					id++
				}
			}
		}
	}
	return writeCSV(filepath.Join(dir, LinelistFile), rows)
}

func (g *generator) aggregate(dir string) error {
	rows := [][]string{{"dateRep", "Day", "Month", "Year", "Cases", "Deaths", "Countries and territories", "GeoId"}}
	for i := g.opts.Days - 1; i >= 0; i-- {
		d := g.day(i)
		for _, c := range countries {
			rows = append(rows, []string{
				d.Format("02/01/2006"), itoa(d.Day()), itoa(int(d.Month())), itoa(d.Year()),
				itoa(g.daily(i, 50)), itoa(g.daily(i, 3)), c.name, c.geoID,
			})
		}
	}
	return writeCSV(filepath.Join(dir, AggregateFile), rows)
}

// matrices writes the confirmed and deaths pair with identical row order.
func (g *generator) matrices(dir string) error {
	header := []string{"Province/State", "Country/Region", "Lat", "Long"}
	for i := 0; i < g.opts.Days; i++ {
		header = append(header, g.day(i).Format("1/2/06"))
	}
	confirmed := [][]string{header}
	deaths := [][]string{header}
	for _, c := range countries {
		provinces := c.provinces
		if len(provinces) == 0 {
			provinces = []string{""}
		}
		for _, p := range provinces {
			cr := []string{p, c.name, "0", "0"}
			dr := []string{p, c.name, "0", "0"}
			cum, dead := 0, 0
			for i := 0; i < g.opts.Days; i++ {
				cum += g.daily(i, 40)
				dead += g.daily(i, 2)
				cr = append(cr, itoa(cum))
				dr = append(dr, itoa(dead))
			}
			confirmed = append(confirmed, cr)
			deaths = append(deaths, dr)
		}
	}
	if err := writeCSV(filepath.Join(dir, ConfirmedFile), confirmed); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, DeathsFile), deaths)
}

// snapshots writes one daily report per day in the schema of its era.
func (g *generator) snapshots(dir string) error {
	out := filepath.Join(dir, SnapshotDir)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	cutover := time.Date(2020, time.March, 22, 0, 0, 0, 0, time.UTC)
	totals := make(map[string]int)
	for i := 0; i < g.opts.Days; i++ {
		d := g.day(i)
		var rows [][]string
		if d.Before(cutover) {
			rows = [][]string{{"Province/State", "Country/Region", "Last Update", "Confirmed", "Deaths", "Recovered"}}
			for _, st := range usStates {
				totals[st.name] += g.daily(i, 20)
				rows = append(rows, []string{st.name, "US", d.Format(time.RFC3339), itoa(totals[st.name]), "0", "0"})
			}
		} else {
			rows = [][]string{{"FIPS", "Admin2", "Province_State", "Country_Region", "Last_Update", "Lat", "Long_", "Confirmed", "Deaths", "Recovered", "Active", "Combined_Key"}}
			for _, st := range usStates {
				for _, county := range st.counties {
					cases := g.daily(i, 10)
					rows = append(rows, []string{"", county, st.name, "US", d.Format(time.DateTime), "0", "0",
						itoa(cases), itoa(g.rng.IntN(2)), "0", "0", county + ", " + st.name + ", US"})
				}
			}
		}
		name := fmt.Sprintf("%02d-%02d-%d.csv", int(d.Month()), d.Day(), d.Year())
		if err := writeCSV(filepath.Join(out, name), rows); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) unPopulation(dir string) error {
	rows := [][]string{
		{"T02", "Population, surface area and density", "", "", "", "", ""},
		{"Region/Country/Area", "", "Year", "Series", "Value", "Footnotes", "Source"},
	}
	for _, c := range countries {
		value := strconv.FormatFloat(c.millions, 'f', 2, 64)
		rows = append(rows,
			[]string{"0", c.name, "2019", population.UNIndicator, value, "", ""},
			[]string{"0", c.name, "2010", population.UNIndicator, value, "", ""},
			[]string{"0", c.name, "2019", "Population density", "100", "", ""},
		)
	}
	return writeCSV(filepath.Join(dir, UNFile), rows)
}

// dePopulation writes the single-row table ISO-8859-3 encoded.
func (g *generator) dePopulation(dir string) error {
	header := make([]string, len(deStates))
	values := make([]string, len(deStates))
	for i, st := range deStates {
		header[i] = st.name
		values[i] = itoa(st.persons)
	}
	f, err := os.Create(filepath.Join(dir, DEFile))
	if err != nil {
		return err
	}
	w := csv.NewWriter(charmap.ISO8859_3.NewEncoder().Writer(f))
	if err := w.WriteAll([][]string{header, values}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (g *generator) usPopulation(dir string) error {
	rows := [][]string{{"SUMLEV", "REGION", "NAME", "POPESTIMATE2018", population.USEstimateColumn}}
	for _, st := range usStates {
		rows = append(rows, []string{"040", "0", st.name, itoa(st.persons - 1000), itoa(st.persons)})
	}
	return writeCSV(filepath.Join(dir, USFile), rows)
}

func (g *generator) charts(dir string) error {
	align := 1.0
	specs := []chart.Spec{
		{
			Name: "countries-per-capita", Title: "Cumulative cases per 100.000",
			Source: "aggregate", Dimension: domain.DimCountry,
			Entities: []string{"IT", "DE"}, X: domain.FieldDaysPassed, Y: domain.FieldCumCases,
			Align: &align, Scale: chart.ScaleLog, Population: population.KindUN,
		},
		{
			Name: "de-states", Source: "linelist", Dimension: domain.DimState,
			Entities: []string{"Bayern", "Thüringen"}, X: domain.FieldDate, Y: domain.FieldNewCases,
			Scale: chart.ScaleLinear, Population: population.KindDE,
		},
		{
			Name: "matrix-provinces", Source: "widematrix", Dimension: domain.DimState,
			Entities: []string{"Queensland", "Victoria"}, X: domain.FieldDate, Y: domain.FieldCumDeaths,
		},
		{
			Name: "us-states", Source: "snapshot", Dimension: domain.DimState,
			Entities: []string{"Washington", "New York"}, X: domain.FieldDaysPassed, Y: domain.FieldCumCases,
			Population: population.KindUS,
		},
	}
	data, err := yaml.Marshal(map[string][]chart.Spec{"charts": specs})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ChartsFile), data, 0o600)
}
