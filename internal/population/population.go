// Package population loads population denominators and scales series to
// per-capita values. Every table holds populations in hundred-thousands, so
// dividing a count by a table value yields a rate per 100,000 inhabitants.
package population

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/csvio"
)

// Reference values used by the published datasets.
const (
	UNYear           = 2019
	UNIndicator      = "Population mid-year estimates (millions)"
	USNameColumn     = "NAME"
	USEstimateColumn = "POPESTIMATE2019"
)

var (
	// ErrMissingPopulation is returned when an entity has no usable
	// denominator. There is no fallback value.
	ErrMissingPopulation = errors.New("no population for entity")
	// ErrNoData is returned for a file without any usable data row.
	ErrNoData = errors.New("population file has no data")
)

// Kind names a population file format.
type Kind string

const (
	KindUN Kind = "un"
	KindDE Kind = "de"
	KindUS Kind = "us"
)

// Table maps an entity identifier to its population in hundred-thousands.
type Table map[string]float64

// PerCapita divides every value by the entity's population.
func (t Table) PerCapita(entity string, values []float64) ([]float64, error) {
	pop, ok := t[entity]
	if !ok || pop <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingPopulation, entity)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / pop
	}
	return out, nil
}

// LoadUN reads the UN statistical yearbook population table. The first two
// lines are titles; data rows are [code, name, year, series, value] with the
// value in millions. Only rows for year and indicator are used. When
// nameToCode is non-nil, country names are translated through it and rows for
// unknown names are dropped; otherwise the table is keyed by name. A file
// with no matching row yields ErrNoData, as LoadUS does.
func LoadUN(in io.Reader, year int, indicator string, nameToCode map[string]string) (Table, error) {
	cr := csvio.NewReader(in)
	for i := 0; i < 2; i++ {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoData
			}
			return nil, fmt.Errorf("un population title: %w", err)
		}
	}

	t := make(Table)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("un population: %w", err)
		}
		if len(row) < 5 {
			continue
		}
		y, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil || y != year || strings.TrimSpace(row[3]) != indicator {
			continue
		}
		millions, err := csvio.ParseFloat(row[4])
		if err != nil {
			continue
		}

		key := strings.TrimSpace(row[1])
		if nameToCode != nil {
			code, ok := nameToCode[key]
			if !ok {
				continue
			}
			key = code
		}
		t[key] = millions * 10
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: no %q rows for %d", ErrNoData, indicator, year)
	}
	return t, nil
}

// LoadDE reads the German table: a single ISO-8859-3 encoded data row with
// one column per state holding head counts.
func LoadDE(in io.Reader) (Table, error) {
	cr := csvio.NewReader(csvio.DecodeLatin3(in))
	header, err := csvio.ReadHeader(cr)
	if err != nil {
		return nil, err
	}
	row, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("de population: %w", err)
	}

	t := make(Table, len(header.Names()))
	for _, name := range header.Names() {
		persons, err := csvio.ParseFloat(header.Get(row, name))
		if err != nil {
			return nil, fmt.Errorf("de population column %q: %w", name, err)
		}
		t[name] = persons / 1e5
	}
	return t, nil
}

// LoadUS reads the census estimates: one ISO-8859-3 encoded row per region
// keyed by NAME, with head counts in the estimate column. Rows whose
// estimate does not parse are dropped.
func LoadUS(in io.Reader, column string) (Table, error) {
	cr := csvio.NewReader(csvio.DecodeLatin3(in))
	header, err := csvio.ReadHeader(cr)
	if err != nil {
		return nil, err
	}
	if err := header.Require(USNameColumn, column); err != nil {
		return nil, err
	}

	t := make(Table)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("us population: %w", err)
		}
		name := header.Get(row, USNameColumn)
		persons, err := csvio.ParseFloat(header.Get(row, column))
		if name == "" || err != nil {
			continue
		}
		t[name] = persons / 1e5
	}
	if len(t) == 0 {
		return nil, ErrNoData
	}
	return t, nil
}

// LoadFile opens path and parses it with the loader for kind, using the
// reference year, indicator and estimate column of the published files.
func LoadFile(path string, kind Kind, nameToCode map[string]string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open population file: %w", err)
	}
	defer f.Close()

	var t Table
	switch kind {
	case KindUN:
		t, err = LoadUN(f, UNYear, UNIndicator, nameToCode)
	case KindDE:
		t, err = LoadDE(f)
	case KindUS:
		t, err = LoadUS(f, USEstimateColumn)
	default:
		return nil, fmt.Errorf("unknown population kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
