// Package linelist reads the German line-list export: one row per bundle of
// reported cases for a state, county, age group and sex on a reporting date.
package linelist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/csvio"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// Source is the name reported in ReadResult.Source and metrics labels.
const Source = "linelist"

const (
	colState    = "Bundesland"
	colCounty   = "Landkreis"
	colAgeGroup = "Altersgruppe"
	colSex      = "Geschlecht"
	colReported = "Meldedatum"
	colCases    = "AnzahlFall"
	colDeaths   = "AnzahlTodesfall"
)

var requiredColumns = []string{colState, colCounty, colAgeGroup, colSex, colReported, colCases, colDeaths}

// sentinels are category values meaning "not collected" or "not
// determinable". They never become discovered entities; rows carrying them
// still contribute to every other key they have.
var sentinels = map[string]struct{}{
	"-nicht erhoben-":     {},
	"-nicht ermittelbar-": {},
	"nicht erhoben":       {},
	"nicht ermittelbar":   {},
	"unbekannt":           {},
}

// Dimensions lists the entity dimensions a line-list dataset is aggregated on.
var Dimensions = []domain.Dimension{domain.DimState, domain.DimCounty}

// Reader reads a line-list CSV file.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the file at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Name implements pipeline.Source.
func (r *Reader) Name() string { return Source }

// Dimensions implements pipeline.Source.
func (r *Reader) Dimensions() []domain.Dimension { return Dimensions }

// Read opens, fully consumes and closes the file.
func (r *Reader) Read(_ context.Context) (domain.ReadResult, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return domain.ReadResult{}, fmt.Errorf("open line list: %w", err)
	}
	defer f.Close()

	res, err := ReadFrom(f, r.logger)
	if err != nil {
		return domain.ReadResult{}, fmt.Errorf("%s: %w", r.path, err)
	}
	return res, nil
}

// ReadFrom parses a line list from in.
func ReadFrom(in io.Reader, logger *slog.Logger) (domain.ReadResult, error) {
	cr := csvio.NewReader(in)
	header, err := csvio.ReadHeader(cr)
	if err != nil {
		return domain.ReadResult{}, err
	}
	if err := header.Require(requiredColumns...); err != nil {
		return domain.ReadResult{}, err
	}

	res := domain.ReadResult{Source: Source, Discovery: domain.NewDiscovery(), Files: 1}
	counties := res.Discovery.Hierarchy(domain.DimState, domain.DimCounty)

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return domain.ReadResult{}, fmt.Errorf("line %d: %w", line, err)
		}

		state := header.Get(row, colState)
		county := header.Get(row, colCounty)
		ageGroup := header.Get(row, colAgeGroup)
		sex := header.Get(row, colSex)

		addEntity(&res.Discovery, domain.DimState, state)
		addEntity(&res.Discovery, domain.DimCounty, county)
		addEntity(&res.Discovery, domain.DimAgeGroup, ageGroup)
		addEntity(&res.Discovery, domain.DimSex, sex)
		if !IsSentinel(state) {
			child := county
			if IsSentinel(child) {
				child = ""
			}
			counties.Link(state, child)
		}

		rec, err := parseRow(header, row, state, county, ageGroup, sex)
		if err != nil {
			res.Skipped++
			logger.Debug("skipping line-list row", "line", line, "error", err)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func parseRow(header csvio.Header, row []string, state, county, ageGroup, sex string) (domain.RawRecord, error) {
	reported, err := ParseReportDate(header.Get(row, colReported))
	if err != nil {
		return domain.RawRecord{}, err
	}
	cases, err := csvio.ParseCount(header.Get(row, colCases))
	if err != nil {
		return domain.RawRecord{}, fmt.Errorf("%s: %w", colCases, err)
	}
	deaths, err := csvio.ParseCount(header.Get(row, colDeaths))
	if err != nil {
		return domain.RawRecord{}, fmt.Errorf("%s: %w", colDeaths, err)
	}

	keys := make(map[domain.Dimension]string, 4)
	setKey(keys, domain.DimState, state)
	setKey(keys, domain.DimCounty, county)
	setKey(keys, domain.DimAgeGroup, ageGroup)
	setKey(keys, domain.DimSex, sex)
	if _, ok := keys[domain.DimState]; !ok {
		if _, ok := keys[domain.DimCounty]; !ok {
			return domain.RawRecord{}, domain.ErrMissingEntity
		}
	}
	return domain.NewIncremental(keys, reported, cases, deaths), nil
}

func setKey(keys map[domain.Dimension]string, dim domain.Dimension, v string) {
	if v != "" {
		keys[dim] = v
	}
}

func addEntity(d *domain.Discovery, dim domain.Dimension, v string) {
	if v == "" || IsSentinel(v) {
		return
	}
	d.Add(dim, v)
}

// IsSentinel reports whether v is a "not collected" or "not determinable" marker.
func IsSentinel(v string) bool {
	_, ok := sentinels[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// ParseReportDate extracts the calendar date from a Meldedatum value such as
// "2020-03-14T00:00:00.000Z" or "2020/03/14 00:00:00". Everything after the
// first 'T' or space is discarded.
func ParseReportDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "/", "-")
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", colReported, err)
	}
	return d, nil
}
