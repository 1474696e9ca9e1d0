package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/epi-series-etl/internal/chart"
	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/observability"
	"github.com/couchcryptid/epi-series-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcesFromConfig(t *testing.T) {
	cfg := &config.Config{
		LinelistPath:        "rki.csv",
		ConfirmedMatrixPath: "confirmed.csv",
		DeathsMatrixPath:    "deaths.csv",
		SnapshotDir:         "daily",
	}

	sources := pipeline.SourcesFromConfig(cfg, discardLogger())

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"linelist", "widematrix", "snapshot"}, names)
}

func TestPipeline_Run_WithFileSources(t *testing.T) {
	dir := t.TempDir()
	daily := filepath.Join(dir, "daily")
	require.NoError(t, os.Mkdir(daily, 0o755))
	files := map[string]string{
		"daily/03-21-2020.csv": "Province/State,Country/Region,Last Update,Confirmed,Deaths,Recovered\n" +
			",Italy,x,53578,4825,6072\n",
		"daily/03-22-2020.csv": "FIPS,Admin2,Province_State,Country_Region,Last_Update,Lat,Long_,Confirmed,Deaths,Recovered,Active,Combined_Key\n" +
			"53033,King,Washington,US,x,0,0,20,1,0,0,King\n",
		"confirmed.csv": "Province/State,Country/Region,Lat,Long,3/21/20,3/22/20\n,Italy,0,0,53578,59138\n",
		"deaths.csv":    "Province/State,Country/Region,Lat,Long,3/21/20,3/22/20\n,Italy,0,0,4825,5476\n",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600))
	}

	cfg := &config.Config{
		ConfirmedMatrixPath: filepath.Join(dir, "confirmed.csv"),
		DeathsMatrixPath:    filepath.Join(dir, "deaths.csv"),
		SnapshotDir:         daily,
	}
	charts := []chart.Spec{{
		Name:      "italy",
		Source:    "widematrix",
		Dimension: domain.DimCountry,
		Entities:  []string{"Italy"},
		X:         domain.FieldDate,
		Y:         domain.FieldCumDeaths,
	}}

	ldr := &mockLoader{}
	p := pipeline.New(pipeline.SourcesFromConfig(cfg, discardLogger()), charts, nil, ldr, discardLogger(), observability.NewMetricsForTesting())
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []float64{4825, 5476}, report.Frames[0].Lines[0].Y)

	snap := report.Datasets["snapshot"]
	king, ok := snap.Entity(domain.DimCounty, "King")
	require.True(t, ok)
	assert.Equal(t, []int64{20}, king.NewCases)
	assert.Equal(t, []int{1}, king.DaysPassed)
	require.Len(t, ldr.loaded, 1)
}
