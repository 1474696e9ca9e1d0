package widematrix

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
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestReader_SingleCountryPair(t *testing.T) {
	dir := t.TempDir()
	confirmed := writeFile(t, dir, "confirmed.csv",
		"Country/Region,Province/State,1/22/20,1/23/20\nAfghanistan,,1,3\n")
	deaths := writeFile(t, dir, "deaths.csv",
		"Country/Region,Province/State,1/22/20,1/23/20\nAfghanistan,,0,1\n")

	res, err := NewReader(confirmed, deaths, discardLogger()).Read(context.Background())
	require.NoError(t, err)

	ds := domain.BuildDataset(res, Dimensions...)
	require.Len(t, ds.Series[domain.DimCountry], 1)

	want := domain.EntitySeries{
		Entity: "Afghanistan",
		Dates: []time.Time{
			time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 23, 0, 0, 0, 0, time.UTC),
		},
		DaysPassed: []int{0, 1},
		CumCases:   []int64{1, 3},
		CumDeaths:  []int64{0, 1},
	}
	if diff := cmp.Diff(want, ds.Series[domain.DimCountry]["Afghanistan"]); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, ds.Series[domain.DimState])
}

func TestReader_ShapeMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	confirmed := writeFile(t, dir, "confirmed.csv",
		"Country/Region,Province/State,1/22/20\nItaly,,1\nSpain,,2\n")
	deaths := writeFile(t, dir, "deaths.csv",
		"Country/Region,Province/State,1/22/20\nItaly,,0\n")

	res, err := NewReader(confirmed, deaths, discardLogger()).Read(context.Background())
	require.ErrorIs(t, err, ErrMatrixMismatch)
	assert.Empty(t, res.Records)
}

func TestMerge_DateColumnMismatch(t *testing.T) {
	c, err := Parse(strings.NewReader("Country/Region,Province/State,1/22/20,1/23/20\nItaly,,1,2\n"))
	require.NoError(t, err)
	d, err := Parse(strings.NewReader("Country/Region,Province/State,1/22/20\nItaly,,0\n"))
	require.NoError(t, err)

	_, err = Merge(c, d, discardLogger())
	assert.ErrorIs(t, err, ErrMatrixMismatch)
}

func TestParse_IgnoresNonDateColumns(t *testing.T) {
	m, err := Parse(strings.NewReader(
		"Province/State,Country/Region,Lat,Long,1/22/20,12/31/20,2020-01-24\n" +
			"Hubei,China,30.97,112.27,444,68149,9\n"))
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
	}, m.Dates)
	require.Len(t, m.Rows, 1)
	assert.Equal(t, "China", m.Rows[0].Country)
	assert.Equal(t, "Hubei", m.Rows[0].Province)
	assert.Len(t, m.Rows[0].Cells, 2)
}

func TestParse_MissingEntityColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("Country/Region,1/22/20\nItaly,1\n"))
	assert.ErrorIs(t, err, csvio.ErrSchema)
}

func TestMerge_ProvincesAndBadCells(t *testing.T) {
	c, err := Parse(strings.NewReader("Province/State,Country/Region,1/22/20,1/23/20\n" +
		"Victoria,Australia,1,x\n" +
		"Queensland,Australia,2,4\n"))
	require.NoError(t, err)
	d, err := Parse(strings.NewReader("Province/State,Country/Region,1/22/20,1/23/20\n" +
		"Victoria,Australia,0,0\n" +
		"Queensland,Australia,0,1\n"))
	require.NoError(t, err)

	res, err := Merge(c, d, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Records, 3)

	h, ok := res.Discovery.Lookup(domain.DimCountry, domain.DimState)
	require.True(t, ok)
	assert.Equal(t, []string{"Queensland", "Victoria"}, h.Children("Australia"))

	ds := domain.BuildDataset(res, Dimensions...)
	au := ds.Series[domain.DimCountry]["Australia"]
	assert.Equal(t, []int64{3, 4}, au.CumCases)
	assert.Equal(t, []int64{0, 1}, au.CumDeaths)

	vic := ds.Series[domain.DimState]["Victoria"]
	assert.Equal(t, []int64{1}, vic.CumCases)
}

func TestMerge_UnparseableFirstColumnKeepsDayZero(t *testing.T) {
	c, err := Parse(strings.NewReader("Province/State,Country/Region,1/22/20,1/23/20\n,Italy,n/a,3\n"))
	require.NoError(t, err)
	d, err := Parse(strings.NewReader("Province/State,Country/Region,1/22/20,1/23/20\n,Italy,0,1\n"))
	require.NoError(t, err)

	res, err := Merge(c, d, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)

	ds := domain.BuildDataset(res, Dimensions...)
	assert.Equal(t, time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC), ds.FirstDate)
	assert.Equal(t, []int{1}, ds.Series[domain.DimCountry]["Italy"].DaysPassed)
}

func TestParseColumnDate(t *testing.T) {
	got, err := ParseColumnDate("3/9/20")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC), got)
}
