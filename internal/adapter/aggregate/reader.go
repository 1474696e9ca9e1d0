// Package aggregate reads the supranational daily feed: one row per country
// per day with that day's new cases and deaths.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/csvio"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// Source is the name reported in ReadResult.Source and metrics labels.
const Source = "aggregate"

const (
	colGeoID   = "GeoId"
	colCountry = "Countries and territories"
	colYear    = "Year"
	colMonth   = "Month"
	colDay     = "Day"
	colCases   = "Cases"
	colDeaths  = "Deaths"
)

var requiredColumns = []string{colGeoID, colCountry, colYear, colMonth, colDay, colCases, colDeaths}

// Dimensions lists the entity dimensions an aggregate dataset is built on.
var Dimensions = []domain.Dimension{domain.DimCountry}

// Reader reads an aggregate-feed CSV file.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the file at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

func (r *Reader) Name() string                   { return Source }
func (r *Reader) Dimensions() []domain.Dimension { return Dimensions }

// Read opens, fully consumes and closes the file.
func (r *Reader) Read(_ context.Context) (domain.ReadResult, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return domain.ReadResult{}, fmt.Errorf("open aggregate feed: %w", err)
	}
	defer f.Close()

	res, err := ReadFrom(f, r.logger)
	if err != nil {
		return domain.ReadResult{}, fmt.Errorf("%s: %w", r.path, err)
	}
	return res, nil
}

// ReadFrom parses the feed from in. Countries are keyed by GeoId; the
// human-readable name (underscores replaced by spaces) is kept as a label.
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

		geoID := header.Get(row, colGeoID)
		if geoID == "" {
			res.Skipped++
			logger.Debug("skipping aggregate row without GeoId", "line", line)
			continue
		}
		res.Discovery.Add(domain.DimCountry, geoID)
		res.Discovery.Labels[geoID] = strings.ReplaceAll(header.Get(row, colCountry), "_", " ")

		rec, err := parseRow(header, row, geoID)
		if err != nil {
			res.Skipped++
			logger.Debug("skipping aggregate row", "line", line, "geo_id", geoID, "error", err)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func parseRow(header csvio.Header, row []string, geoID string) (domain.RawRecord, error) {
	reported, err := parseYMD(header.Get(row, colYear), header.Get(row, colMonth), header.Get(row, colDay))
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
	keys := map[domain.Dimension]string{domain.DimCountry: geoID}
	return domain.NewIncremental(keys, reported, cases, deaths), nil
}

func parseYMD(y, m, d string) (time.Time, error) {
	year, errY := strconv.Atoi(y)
	month, errM := strconv.Atoi(m)
	day, errD := strconv.Atoi(d)
	if err := errors.Join(errY, errM, errD); err != nil {
		return time.Time{}, fmt.Errorf("date %s-%s-%s: %w", y, m, d, err)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; reject instead of silently shifting.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("date %s-%s-%s out of range", y, m, d)
	}
	return t, nil
}
