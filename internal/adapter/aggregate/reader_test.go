package aggregate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/csvio"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "dateRep,Day,Month,Year,Cases,Deaths,Countries and territories,GeoId,countryterritoryCode,popData2018\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadFrom(t *testing.T) {
	data := header +
		"02/03/2020,2,3,2020,18,0,Germany,DE,DEU,82927922\n" +
		"01/03/2020,1,3,2020,4,0,Germany,DE,DEU,82927922\n" +
		"01/03/2020,1,3,2020,1,0,United_Kingdom,UK,GBR,66488991\n"

	res, err := ReadFrom(strings.NewReader(data), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, Source, res.Source)
	assert.Equal(t, []string{"DE", "UK"}, res.Discovery.Set(domain.DimCountry).Sorted())
	assert.Equal(t, "United Kingdom", res.Discovery.Labels["UK"])

	ds := domain.BuildDataset(res, Dimensions...)
	de, ok := ds.Entity(domain.DimCountry, "DE")
	require.True(t, ok)
	assert.Equal(t, []time.Time{
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
	}, de.Dates)
	assert.Equal(t, []int64{4, 18}, de.NewCases)
	assert.Equal(t, []int64{4, 22}, de.CumCases)
	assert.Equal(t, []int{0, 1}, de.DaysPassed)
}

func TestReadFrom_SkipsBadRows(t *testing.T) {
	data := header +
		"x,31,2,2020,1,0,Italy,IT,ITA,1\n" +
		"x,1,3,2020,abc,0,Italy,IT,ITA,1\n" +
		"x,1,3,2020,2,0,Italy,,ITA,1\n" +
		"x,2,3,2020,5,1,Italy,IT,ITA,1\n"

	res, err := ReadFrom(strings.NewReader(data), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(5), res.Records[0].Incremental.Cases)
}

func TestReadFrom_SchemaMismatch(t *testing.T) {
	_, err := ReadFrom(strings.NewReader("GeoId,Cases\nDE,1\n"), discardLogger())
	assert.ErrorIs(t, err, csvio.ErrSchema)
}

func TestReader_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecdc.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"x,1,3,2020,1,0,Austria,AT,AUT,1\n"), 0o600))

	res, err := NewReader(path, discardLogger()).Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestParseYMD(t *testing.T) {
	got, err := parseYMD("2020", "2", "29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = parseYMD("2019", "2", "29")
	assert.Error(t, err)

	_, err = parseYMD("20x0", "1", "1")
	assert.Error(t, err)
}
