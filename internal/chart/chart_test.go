package chart

import (
	"testing"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/population"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testSeries() map[string]domain.EntitySeries {
	return map[string]domain.EntitySeries{
		"IT": {
			Entity:     "IT",
			Dates:      []time.Time{day(2020, 3, 1), day(2020, 3, 2), day(2020, 3, 3), day(2020, 3, 4)},
			DaysPassed: []int{0, 1, 2, 3},
			NewCases:   []int64{2, 8, 30, 60},
			NewDeaths:  []int64{0, 0, 1, 2},
			CumCases:   []int64{2, 10, 40, 100},
			CumDeaths:  []int64{0, 0, 1, 3},
		},
		"LU": {
			Entity:     "LU",
			Dates:      []time.Time{day(2020, 3, 2), day(2020, 3, 4)},
			DaysPassed: []int{1, 3},
			NewCases:   []int64{1, 2},
			NewDeaths:  []int64{0, 0},
			CumCases:   []int64{1, 3},
			CumDeaths:  []int64{0, 0},
		},
	}
}

func TestPrepare_Plain(t *testing.T) {
	fixed := time.Date(2020, 4, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	f, err := Prepare(testSeries(), Spec{
		Name:     "cases",
		Entities: []string{"IT", "LU"},
		X:        domain.FieldDaysPassed,
		Y:        domain.FieldCumCases,
		Labels:   map[string]string{"IT": "Italy"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, fixed, f.GeneratedAt)
	assert.Equal(t, ScaleLog, f.Scale)
	assert.Equal(t, "days passed", f.XLabel)
	assert.Equal(t, "cumulative cases", f.YLabel)
	assert.False(t, f.XIsDate)
	require.Len(t, f.Lines, 2)
	assert.Equal(t, "Italy", f.Lines[0].Label)
	assert.Equal(t, "LU", f.Lines[1].Label)
	assert.Equal(t, []float64{1, 3}, f.Lines[1].X)
	assert.Equal(t, []float64{1, 3}, f.Lines[1].Y)
	assert.Empty(t, f.Omitted)
}

func TestPrepare_XStartFilter(t *testing.T) {
	f, err := Prepare(testSeries(), Spec{
		Entities: []string{"IT"},
		X:        domain.FieldDate,
		Y:        domain.FieldNewCases,
		XFrom:    ptr(DateValue(day(2020, 3, 3))),
		Scale:    ScaleLinear,
	}, nil)
	require.NoError(t, err)

	require.Len(t, f.Lines, 1)
	assert.True(t, f.XIsDate)
	assert.Equal(t, []float64{DateValue(day(2020, 3, 3)), DateValue(day(2020, 3, 4))}, f.Lines[0].X)
	assert.Equal(t, []float64{30, 60}, f.Lines[0].Y)
	assert.Equal(t, ScaleLinear, f.Scale)
}

func TestPrepare_PerCapitaAndAlign(t *testing.T) {
	pop := population.Table{"IT": 2, "LU": 10}

	f, err := Prepare(testSeries(), Spec{
		Entities:   []string{"IT", "LU"},
		X:          domain.FieldDaysPassed,
		Y:          domain.FieldCumCases,
		Align:      ptr(5),
		Population: population.KindUN,
	}, pop)
	require.NoError(t, err)

	assert.Equal(t, "days passed since 5 per 100.000", f.XLabel)
	assert.Equal(t, "cumulative cases per 100.000", f.YLabel)

	// IT per capita: 1, 5, 20, 50 -> starts at day 1.
	require.Len(t, f.Lines, 1)
	assert.Equal(t, []float64{0, 1, 2}, f.Lines[0].X)
	assert.Equal(t, []float64{5, 20, 50}, f.Lines[0].Y)
	// LU per capita peaks at 0.3 and never reaches the threshold.
	assert.Equal(t, []string{"LU"}, f.Omitted)
}

func TestPrepare_AlignWithoutNorm(t *testing.T) {
	f, err := Prepare(testSeries(), Spec{
		Entities: []string{"IT"},
		X:        domain.FieldDaysPassed,
		Y:        domain.FieldCumCases,
		Align:    ptr(10),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "days passed since 10", f.XLabel)
	assert.Equal(t, []float64{0, 1, 2}, f.Lines[0].X)
}

func TestPrepare_Errors(t *testing.T) {
	base := Spec{Entities: []string{"IT"}, X: domain.FieldDaysPassed, Y: domain.FieldCumCases}

	t.Run("unknown entity", func(t *testing.T) {
		s := base
		s.Entities = []string{"FR"}
		_, err := Prepare(testSeries(), s, nil)
		assert.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("missing population", func(t *testing.T) {
		s := base
		s.Population = population.KindUN
		_, err := Prepare(testSeries(), s, population.Table{"LU": 1})
		assert.ErrorIs(t, err, population.ErrMissingPopulation)
	})

	t.Run("population not loaded", func(t *testing.T) {
		s := base
		s.Population = population.KindDE
		_, err := Prepare(testSeries(), s, nil)
		assert.ErrorIs(t, err, ErrInvalidSpec)
	})

	t.Run("count field on x", func(t *testing.T) {
		s := base
		s.X = domain.FieldCumCases
		_, err := Prepare(testSeries(), s, nil)
		assert.ErrorIs(t, err, ErrInvalidSpec)
	})

	t.Run("bad scale", func(t *testing.T) {
		s := base
		s.Scale = "symlog"
		_, err := Prepare(testSeries(), s, nil)
		assert.ErrorIs(t, err, ErrInvalidSpec)
	})

	t.Run("per-day field on cumulative series", func(t *testing.T) {
		series := map[string]domain.EntitySeries{"AF": {
			Entity:     "AF",
			Dates:      []time.Time{day(2020, 1, 22)},
			DaysPassed: []int{0},
			CumCases:   []int64{1},
			CumDeaths:  []int64{0},
		}}
		s := base
		s.Entities = []string{"AF"}
		s.Y = domain.FieldNewCases
		_, err := Prepare(series, s, nil)
		assert.ErrorIs(t, err, domain.ErrFieldUnavailable)
	})
}

func TestPrepare_EmptyAfterFilterIsOmitted(t *testing.T) {
	f, err := Prepare(testSeries(), Spec{
		Entities: []string{"IT", "LU"},
		X:        domain.FieldDaysPassed,
		Y:        domain.FieldCumCases,
		XFrom:    ptr(3.5),
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, f.Lines)
	assert.Equal(t, []string{"IT", "LU"}, f.Omitted)
}

func TestSetClock(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	assert.Equal(t, fixed, clock.Now())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}
