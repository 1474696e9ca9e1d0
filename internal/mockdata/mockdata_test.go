package mockdata_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/mockdata"
	"github.com/couchcryptid/epi-series-etl/internal/observability"
	"github.com/couchcryptid/epi-series-etl/internal/pipeline"
	"github.com/couchcryptid/epi-series-etl/internal/population"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate_Deterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, mockdata.Generate(a, mockdata.DefaultOptions()))
	require.NoError(t, mockdata.Generate(b, mockdata.DefaultOptions()))

	for _, name := range []string{mockdata.LinelistFile, mockdata.AggregateFile, mockdata.ConfirmedFile, mockdata.ChartsFile} {
		x, err := os.ReadFile(filepath.Join(a, name))
		require.NoError(t, err)
		y, err := os.ReadFile(filepath.Join(b, name))
		require.NoError(t, err)
		assert.Equal(t, x, y, name)
	}
}

func TestGenerate_RejectsEmptySpan(t *testing.T) {
	opts := mockdata.DefaultOptions()
	opts.Days = 0
	assert.Error(t, mockdata.Generate(t.TempDir(), opts))
}

func TestGenerate_SnapshotsSpanCutover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, mockdata.Generate(dir, mockdata.DefaultOptions()))

	entries, err := os.ReadDir(filepath.Join(dir, mockdata.SnapshotDir))
	require.NoError(t, err)
	require.Len(t, entries, 8)

	eras := map[snapshot.Era]int{}
	for _, e := range entries {
		d, err := snapshot.ParseFilename(e.Name())
		require.NoError(t, err)
		eras[snapshot.EraFor(d)]++
	}
	assert.Equal(t, 4, eras[snapshot.EraLegacy])
	assert.Equal(t, 4, eras[snapshot.EraCurrent])
}

func TestGenerate_PopulationTablesLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, mockdata.Generate(dir, mockdata.DefaultOptions()))

	de, err := population.LoadFile(filepath.Join(dir, mockdata.DEFile), population.KindDE, nil)
	require.NoError(t, err)
	assert.InDelta(t, 21.43145, de["Thüringen"], 1e-9)

	us, err := population.LoadFile(filepath.Join(dir, mockdata.USFile), population.KindUS, nil)
	require.NoError(t, err)
	assert.InDelta(t, 76.14893, us["Washington"], 1e-9)

	un, err := population.LoadFile(filepath.Join(dir, mockdata.UNFile), population.KindUN, map[string]string{"Italy": "IT"})
	require.NoError(t, err)
	require.Len(t, un, 1)
	assert.InDelta(t, 605.5, un["IT"], 1e-9)
}

// Every generated source and chart must run through the full pipeline.
func TestGenerate_RunsThroughPipeline(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, mockdata.Generate(dir, mockdata.DefaultOptions()))

	cfg := &config.Config{
		LinelistPath:        filepath.Join(dir, mockdata.LinelistFile),
		AggregatePath:       filepath.Join(dir, mockdata.AggregateFile),
		ConfirmedMatrixPath: filepath.Join(dir, mockdata.ConfirmedFile),
		DeathsMatrixPath:    filepath.Join(dir, mockdata.DeathsFile),
		SnapshotDir:         filepath.Join(dir, mockdata.SnapshotDir),
		UNPopulationPath:    filepath.Join(dir, mockdata.UNFile),
		DEPopulationPath:    filepath.Join(dir, mockdata.DEFile),
		USPopulationPath:    filepath.Join(dir, mockdata.USFile),
	}
	charts, err := config.LoadCharts(filepath.Join(dir, mockdata.ChartsFile))
	require.NoError(t, err)
	require.Len(t, charts, 4)

	p := pipeline.New(pipeline.SourcesFromConfig(cfg, discardLogger()), charts, cfg.PopulationPaths(), nil,
		discardLogger(), observability.NewMetricsForTesting())
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Frames, 4)
	assert.Len(t, report.Datasets, 4)
	for _, ds := range report.Datasets {
		for _, bySeries := range ds.Series {
			for _, s := range bySeries {
				assert.NoError(t, domain.CheckSeries(s, ds.FirstDate), "%s/%s", ds.Source, s.Entity)
			}
		}
	}

	states := report.Datasets["linelist"].Series[domain.DimState]
	assert.Contains(t, states, "Thüringen")
	assert.Len(t, report.Datasets["snapshot"].Series[domain.DimCounty], 3)

	// Both schema eras feed one state series.
	ny := report.Datasets["snapshot"].Series[domain.DimState]["New York"]
	assert.Len(t, ny.Dates, mockdata.DefaultOptions().Days)
}
