// Package snapshot reads an archive of daily report files, one CSV per day
// named M-D-YYYY.csv. The file's date selects which of two schema eras it is
// parsed with.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/csvio"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// Source is the name reported in ReadResult.Source and metrics labels.
const Source = "snapshot"

// ErrBadFilename is returned for a .csv file whose name does not encode a date.
var ErrBadFilename = errors.New("snapshot filename does not encode a date")

// Dimensions lists the entity dimensions a snapshot dataset is built on.
var Dimensions = []domain.Dimension{domain.DimCountry, domain.DimState, domain.DimCounty}

// Reader reads every daily file in a directory.
type Reader struct {
	dir    string
	logger *slog.Logger
}

// NewReader creates a Reader for the archive directory dir.
func NewReader(dir string, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, logger: logger}
}

func (r *Reader) Name() string                   { return Source }
func (r *Reader) Dimensions() []domain.Dimension { return Dimensions }

// Read visits the directory entries in the order the filesystem reports
// them. Discovery is merged by set union, so visiting order does not change
// the result. Sub-directories and non-CSV files are ignored.
func (r *Reader) Read(ctx context.Context) (domain.ReadResult, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return domain.ReadResult{}, fmt.Errorf("read snapshot archive: %w", err)
	}

	res := domain.ReadResult{Source: Source, Discovery: domain.NewDiscovery()}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return domain.ReadResult{}, err
		}

		date, err := ParseFilename(e.Name())
		if err != nil {
			return domain.ReadResult{}, err
		}
		fileRes, err := r.readFile(filepath.Join(r.dir, e.Name()), date)
		if err != nil {
			return domain.ReadResult{}, err
		}

		res.Records = append(res.Records, fileRes.Records...)
		res.Discovery.Merge(fileRes.Discovery)
		res.Skipped += fileRes.Skipped
		res.Files++
		if res.Earliest.IsZero() || date.Before(res.Earliest) {
			res.Earliest = date
		}
	}
	return res, nil
}

func (r *Reader) readFile(path string, date time.Time) (domain.ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ReadResult{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	res, err := ReadFile(f, date, r.logger)
	if err != nil {
		return domain.ReadResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// ReadFile parses one daily file dated date with the schema of its era.
func ReadFile(in io.Reader, date time.Time, logger *slog.Logger) (domain.ReadResult, error) {
	era := EraFor(date)
	l := layouts[era]

	cr := csvio.NewReader(in)
	header, err := csvio.ReadHeader(cr)
	if err != nil {
		return domain.ReadResult{}, err
	}
	if err := header.Require(l.required()...); err != nil {
		return domain.ReadResult{}, fmt.Errorf("%s era: %w", era, err)
	}

	res := domain.ReadResult{Source: Source, Discovery: domain.NewDiscovery(), Files: 1, Earliest: domain.Day(date)}
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

		l.discover(&res.Discovery, header, row)
		rec, err := l.record(header, row, date)
		if err != nil {
			res.Skipped++
			logger.Debug("skipping snapshot row", "date", date.Format(time.DateOnly), "line", line, "error", err)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// ParseFilename extracts the date from names like "3-22-2020.csv" or "03-22-2020.csv".
func ParseFilename(name string) (time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	d, err := time.Parse("1-2-2006", base)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	return d, nil
}
