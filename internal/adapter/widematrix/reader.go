// Package widematrix reads the paired time-series matrices (confirmed and
// deaths) where each row is a country or province and each date column holds
// the running total for that day.
package widematrix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/csvio"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// Source is the name reported in ReadResult.Source and metrics labels.
const Source = "widematrix"

const (
	colCountry  = "Country/Region"
	colProvince = "Province/State"
)

// ErrMatrixMismatch is returned when the confirmed and deaths matrices do not
// have the same number of rows or date columns.
var ErrMatrixMismatch = errors.New("confirmed and deaths matrices differ in shape")

// dateColumnRe matches compact M/D/YY column names such as "1/22/20".
var dateColumnRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`)

// Dimensions lists the entity dimensions a matrix dataset is built on.
var Dimensions = []domain.Dimension{domain.DimCountry, domain.DimState}

// Reader reads a confirmed/deaths matrix pair.
type Reader struct {
	confirmedPath string
	deathsPath    string
	logger        *slog.Logger
}

// NewReader creates a Reader for the two matrix files.
func NewReader(confirmedPath, deathsPath string, logger *slog.Logger) *Reader {
	return &Reader{confirmedPath: confirmedPath, deathsPath: deathsPath, logger: logger}
}

func (r *Reader) Name() string                   { return Source }
func (r *Reader) Dimensions() []domain.Dimension { return Dimensions }

// Read loads both files and merges them.
func (r *Reader) Read(_ context.Context) (domain.ReadResult, error) {
	confirmed, err := loadFile(r.confirmedPath)
	if err != nil {
		return domain.ReadResult{}, err
	}
	deaths, err := loadFile(r.deathsPath)
	if err != nil {
		return domain.ReadResult{}, err
	}
	return Merge(confirmed, deaths, r.logger)
}

// Matrix is one parsed wide file: entity columns plus raw date cells.
type Matrix struct {
	Dates []time.Time
	Rows  []Row
}

// Row is one entity line of a matrix. Cells are keyed by date and left
// unparsed so a bad cell only drops its own day.
type Row struct {
	Country  string
	Province string
	Cells    map[time.Time]string
}

func loadFile(path string) (Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matrix{}, fmt.Errorf("open matrix: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads one matrix. Columns whose names are not M/D/YY dates (Lat,
// Long, ...) are ignored.
func Parse(in io.Reader) (Matrix, error) {
	cr := csvio.NewReader(in)
	header, err := csvio.ReadHeader(cr)
	if err != nil {
		return Matrix{}, err
	}
	if err := header.Require(colCountry, colProvince); err != nil {
		return Matrix{}, err
	}

	type dateCol struct {
		idx  int
		date time.Time
	}
	var cols []dateCol
	for i, name := range header.Names() {
		if !dateColumnRe.MatchString(name) {
			continue
		}
		d, err := ParseColumnDate(name)
		if err != nil {
			continue
		}
		cols = append(cols, dateCol{idx: i, date: d})
	}

	m := Matrix{Dates: make([]time.Time, len(cols))}
	for i, c := range cols {
		m.Dates[i] = c.date
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Matrix{}, fmt.Errorf("line %d: %w", line, err)
		}
		row := Row{
			Country:  header.Get(rec, colCountry),
			Province: header.Get(rec, colProvince),
			Cells:    make(map[time.Time]string, len(cols)),
		}
		for _, c := range cols {
			if c.idx < len(rec) {
				row.Cells[c.date] = rec[c.idx]
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

// ParseColumnDate turns "1/22/20" into 2020-01-22.
func ParseColumnDate(name string) (time.Time, error) {
	return time.Parse("1/2/06", name)
}

// Merge pairs the two matrices row by row and date by date. Both are assumed
// to list the same entities in the same order; only their shapes are checked.
// A (row, date) pair is dropped when either cell fails to parse.
func Merge(confirmed, deaths Matrix, logger *slog.Logger) (domain.ReadResult, error) {
	if len(confirmed.Rows) != len(deaths.Rows) || len(confirmed.Dates) != len(deaths.Dates) {
		return domain.ReadResult{}, fmt.Errorf("%w: confirmed %d rows x %d dates, deaths %d rows x %d dates",
			ErrMatrixMismatch, len(confirmed.Rows), len(confirmed.Dates), len(deaths.Rows), len(deaths.Dates))
	}

	res := domain.ReadResult{Source: Source, Discovery: domain.NewDiscovery(), Files: 2}
	// Day zero comes from the header, so a column of unparseable cells
	// does not shift it.
	for _, d := range confirmed.Dates {
		if res.Earliest.IsZero() || d.Before(res.Earliest) {
			res.Earliest = d
		}
	}
	provinces := res.Discovery.Hierarchy(domain.DimCountry, domain.DimState)

	for i, row := range confirmed.Rows {
		res.Discovery.Add(domain.DimCountry, row.Country)
		res.Discovery.Add(domain.DimState, row.Province)
		provinces.Link(row.Country, row.Province)

		keys := map[domain.Dimension]string{domain.DimCountry: row.Country}
		if row.Province != "" {
			keys[domain.DimState] = row.Province
		}

		other := deaths.Rows[i]
		for _, d := range confirmed.Dates {
			cases, errC := csvio.ParseCount(row.Cells[d])
			deathCell, ok := other.Cells[d]
			if !ok {
				res.Skipped++
				continue
			}
			dead, errD := csvio.ParseCount(deathCell)
			if err := errors.Join(errC, errD); err != nil {
				res.Skipped++
				logger.Debug("skipping matrix cell", "country", row.Country, "province", row.Province,
					"date", d.Format(time.DateOnly), "error", err)
				continue
			}
			res.Records = append(res.Records, domain.NewCumulative(keys, d, cases, dead))
		}
	}
	return res, nil
}
