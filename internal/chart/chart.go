// Package chart turns entity series into renderer-ready frames. Drawing is
// done by an external service; a Frame carries everything it needs: the
// extracted x/y points per entity after start filtering, per-capita scaling
// and threshold alignment, plus axis labels and scale.
package chart

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/population"
)

// Scale is the y-axis scale.
type Scale string

const (
	ScaleLog    Scale = "log"
	ScaleLinear Scale = "linear"
)

var (
	ErrUnknownEntity = errors.New("entity not in series")
	ErrInvalidSpec   = errors.New("invalid chart spec")
)

var axisLabels = map[string]string{
	domain.FieldDate:       "date",
	domain.FieldDaysPassed: "days passed",
	domain.FieldNewCases:   "new cases",
	domain.FieldCumCases:   "cumulative cases",
	domain.FieldNewDeaths:  "new deaths",
	domain.FieldCumDeaths:  "cumulative deaths",
}

// Spec describes one chart.
type Spec struct {
	Name      string           `yaml:"name"`
	Source    string           `yaml:"source"`
	Dimension domain.Dimension `yaml:"dimension"`
	Entities  []string         `yaml:"entities"`
	X         string           `yaml:"x"`
	Y         string           `yaml:"y"`
	// XFrom drops points with x below it. Date axes are measured in days
	// since the Unix epoch, see DateValue.
	XFrom *float64 `yaml:"x_from"`
	// Align truncates each line to start where y first reaches it and
	// re-zeroes x at that point.
	Align      *float64          `yaml:"align"`
	Scale      Scale             `yaml:"scale"`
	Labels     map[string]string `yaml:"labels"`
	Title      string            `yaml:"title"`
	Population population.Kind   `yaml:"population"`
}

// Validate checks field names and scale.
func (s Spec) Validate() error {
	if s.X != domain.FieldDate && s.X != domain.FieldDaysPassed {
		return fmt.Errorf("%w: x must be %s or %s, got %q", ErrInvalidSpec, domain.FieldDate, domain.FieldDaysPassed, s.X)
	}
	if _, ok := axisLabels[s.Y]; !ok || s.Y == domain.FieldDate || s.Y == domain.FieldDaysPassed {
		return fmt.Errorf("%w: y must be a count field, got %q", ErrInvalidSpec, s.Y)
	}
	switch s.Scale {
	case "", ScaleLog, ScaleLinear:
	default:
		return fmt.Errorf("%w: scale %q", ErrInvalidSpec, s.Scale)
	}
	if len(s.Entities) == 0 {
		return fmt.Errorf("%w: no entities", ErrInvalidSpec)
	}
	return nil
}

// Line is one entity's points.
type Line struct {
	Entity string    `json:"entity"`
	Label  string    `json:"label"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
}

// Frame is a fully prepared chart.
type Frame struct {
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	XLabel      string    `json:"x_label"`
	YLabel      string    `json:"y_label"`
	Scale       Scale     `json:"scale"`
	XIsDate     bool      `json:"x_is_date"`
	Lines       []Line    `json:"lines"`
	Omitted     []string  `json:"omitted,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DateValue converts a calendar date into the x value used for date axes.
func DateValue(t time.Time) float64 {
	return float64(domain.DaysBetween(time.Unix(0, 0).UTC(), t))
}

// Prepare builds the frame for spec from series. pop is required when
// spec.Population is set; a missing denominator for any plotted entity fails
// the whole frame. Entities left without points after filtering, or that
// never reach the alignment threshold, are listed in Omitted.
func Prepare(series map[string]domain.EntitySeries, spec Spec, pop population.Table) (Frame, error) {
	if err := spec.Validate(); err != nil {
		return Frame{}, err
	}
	norm := spec.Population != ""
	if norm && pop == nil {
		return Frame{}, fmt.Errorf("%w: population %q not loaded", ErrInvalidSpec, spec.Population)
	}

	f := Frame{
		Name:        spec.Name,
		Title:       spec.Title,
		XLabel:      xLabel(spec, norm),
		YLabel:      yLabel(spec, norm),
		Scale:       spec.Scale,
		XIsDate:     spec.X == domain.FieldDate,
		GeneratedAt: clock.Now().UTC(),
	}
	if f.Scale == "" {
		f.Scale = ScaleLog
	}

	for _, entity := range spec.Entities {
		s, ok := series[entity]
		if !ok {
			return Frame{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
		}
		line, ok, err := prepareLine(s, spec, pop)
		if err != nil {
			return Frame{}, err
		}
		if !ok {
			f.Omitted = append(f.Omitted, entity)
			continue
		}
		f.Lines = append(f.Lines, line)
	}
	return f, nil
}

func prepareLine(s domain.EntitySeries, spec Spec, pop population.Table) (Line, bool, error) {
	xs, err := s.Field(spec.X)
	if err != nil {
		return Line{}, false, err
	}
	ys, err := s.Field(spec.Y)
	if err != nil {
		return Line{}, false, fmt.Errorf("%s: %w", s.Entity, err)
	}

	if spec.XFrom != nil {
		fx, fy := xs[:0:0], ys[:0:0]
		for i := range xs {
			if xs[i] >= *spec.XFrom {
				fx = append(fx, xs[i])
				fy = append(fy, ys[i])
			}
		}
		xs, ys = fx, fy
	}

	if spec.Population != "" {
		ys, err = pop.PerCapita(s.Entity, ys)
		if err != nil {
			return Line{}, false, err
		}
	}

	if spec.Align != nil {
		idx := -1
		for i, y := range ys {
			if y >= *spec.Align {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Line{}, false, nil
		}
		start := xs[idx]
		aligned := make([]float64, len(xs)-idx)
		for i, x := range xs[idx:] {
			aligned[i] = x - start
		}
		xs, ys = aligned, ys[idx:]
	}

	if len(xs) == 0 {
		return Line{}, false, nil
	}

	label := s.Entity
	if l, ok := spec.Labels[s.Entity]; ok && l != "" {
		label = l
	}
	return Line{Entity: s.Entity, Label: label, X: xs, Y: ys}, true, nil
}

func yLabel(spec Spec, norm bool) string {
	l := axisLabels[spec.Y]
	if norm {
		l += " per 100.000"
	}
	return l
}

func xLabel(spec Spec, norm bool) string {
	l := axisLabels[spec.X]
	if spec.Align != nil && *spec.Align != 0 {
		l += " since " + strconv.FormatFloat(*spec.Align, 'f', -1, 64)
		if norm {
			l += " per 100.000"
		}
	}
	return l
}
