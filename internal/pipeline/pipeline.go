package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/chart"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/observability"
	"github.com/couchcryptid/epi-series-etl/internal/population"
)

var (
	ErrUnknownSource    = errors.New("chart refers to an unconfigured source")
	ErrUnknownDimension = errors.New("chart refers to a dimension the source does not build")
)

// Source reads one input dataset into raw records.
type Source interface {
	Name() string
	Dimensions() []domain.Dimension
	Read(ctx context.Context) (domain.ReadResult, error)
}

// FrameLoader hands prepared frames to the renderer.
type FrameLoader interface {
	LoadBatch(ctx context.Context, frames []chart.Frame) error
}

// Report is the outcome of one successful run.
type Report struct {
	Datasets map[string]domain.Dataset
	Frames   []chart.Frame
}

// RunSummary describes the last successful run without its series data.
type RunSummary struct {
	FinishedAt time.Time                `json:"finished_at"`
	Duration   string                   `json:"duration"`
	Sources    map[string]SourceSummary `json:"sources"`
	Frames     []string                 `json:"frames"`
	Published  bool                     `json:"published"`
}

// SourceSummary counts what one source contributed.
type SourceSummary struct {
	FirstDate string                   `json:"first_date"`
	Series    map[domain.Dimension]int `json:"series"`
}

func summarize(r Report, published bool, finished time.Time, took time.Duration) RunSummary {
	s := RunSummary{
		FinishedAt: finished,
		Duration:   took.String(),
		Sources:    make(map[string]SourceSummary, len(r.Datasets)),
		Frames:     make([]string, 0, len(r.Frames)),
		Published:  published,
	}
	for name, ds := range r.Datasets {
		ss := SourceSummary{Series: make(map[domain.Dimension]int, len(ds.Series))}
		if !ds.FirstDate.IsZero() {
			ss.FirstDate = ds.FirstDate.Format(time.DateOnly)
		}
		for dim, series := range ds.Series {
			ss.Series[dim] = len(series)
		}
		s.Sources[name] = ss
	}
	for _, f := range r.Frames {
		s.Frames = append(s.Frames, f.Name)
	}
	return s
}

// Pipeline runs sources through aggregation and chart preparation.
type Pipeline struct {
	sources     []Source
	charts      []chart.Spec
	populations map[population.Kind]string
	loader      FrameLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	last        atomic.Pointer[RunSummary]
}

// New creates a Pipeline. populations maps each population kind to its file;
// loader may be nil, in which case frames are prepared but not published.
func New(sources []Source, charts []chart.Spec, populations map[population.Kind]string, loader FrameLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		sources:     sources,
		charts:      charts,
		populations: populations,
		loader:      loader,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a run has completed,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingestion run has completed yet")
	}
	return nil
}

// Run executes one ingestion run. Every source is read and aggregated and
// every chart prepared before anything is published, so a fatal error
// leaves the sink untouched.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	p.logger.Info("pipeline started", "sources", len(p.sources), "charts", len(p.charts))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := time.Now()

	report, err := p.run(ctx)
	if err != nil {
		p.metrics.RunFailures.Inc()
		return Report{}, err
	}

	took := time.Since(start)
	p.metrics.RunDuration.Observe(took.Seconds())
	summary := summarize(report, p.loader != nil && len(report.Frames) > 0, time.Now().UTC(), took)
	p.last.Store(&summary)
	p.ready.Store(true)
	p.logger.Info("pipeline finished", "frames", len(report.Frames), "duration", took)
	return report, nil
}

// LastRun returns the summary of the most recent successful run.
func (p *Pipeline) LastRun() (RunSummary, bool) {
	s := p.last.Load()
	if s == nil {
		return RunSummary{}, false
	}
	return *s, true
}

func (p *Pipeline) run(ctx context.Context) (Report, error) {
	report := Report{Datasets: make(map[string]domain.Dataset, len(p.sources))}

	for _, src := range p.sources {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		ds, err := p.ingest(ctx, src)
		if err != nil {
			return Report{}, fmt.Errorf("source %s: %w", src.Name(), err)
		}
		report.Datasets[src.Name()] = ds
	}

	tables, err := p.loadPopulations(report.Datasets)
	if err != nil {
		return Report{}, err
	}

	for _, spec := range p.charts {
		frame, err := prepareFrame(report.Datasets, spec, tables)
		if err != nil {
			return Report{}, fmt.Errorf("chart %s: %w", spec.Name, err)
		}
		if len(frame.Omitted) > 0 {
			p.logger.Info("entities omitted from chart", "chart", spec.Name, "entities", frame.Omitted)
		}
		report.Frames = append(report.Frames, frame)
	}

	if p.loader == nil || len(report.Frames) == 0 {
		return report, nil
	}
	if err := p.loader.LoadBatch(ctx, report.Frames); err != nil {
		return Report{}, err
	}
	p.metrics.FramesPublished.Add(float64(len(report.Frames)))
	return report, nil
}

// ingest reads one source and builds its dataset.
func (p *Pipeline) ingest(ctx context.Context, src Source) (domain.Dataset, error) {
	res, err := src.Read(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}

	name := src.Name()
	p.metrics.RowsRead.WithLabelValues(name).Add(float64(len(res.Records)))
	p.metrics.RowsSkipped.WithLabelValues(name).Add(float64(res.Skipped))
	p.metrics.FilesRead.WithLabelValues(name).Add(float64(res.Files))
	if res.Skipped > 0 {
		p.logger.Warn("rows skipped", "source", name, "skipped", res.Skipped)
	}

	ds := domain.BuildDataset(res, src.Dimensions()...)
	for dim, series := range ds.Series {
		p.metrics.SeriesBuilt.WithLabelValues(name, string(dim)).Set(float64(len(series)))
	}
	p.logger.Info("source aggregated",
		"source", name,
		"records", len(res.Records),
		"files", res.Files,
		"first_date", ds.FirstDate.Format(time.DateOnly),
	)
	return ds, nil
}

// loadPopulations loads only the tables some chart asks for. UN country
// names are translated to codes through the labels the sources discovered.
func (p *Pipeline) loadPopulations(datasets map[string]domain.Dataset) (map[population.Kind]population.Table, error) {
	tables := make(map[population.Kind]population.Table)
	for _, spec := range p.charts {
		kind := spec.Population
		if kind == "" {
			continue
		}
		if _, done := tables[kind]; done {
			continue
		}
		path, ok := p.populations[kind]
		if !ok {
			return nil, fmt.Errorf("chart %s: no file configured for %s population", spec.Name, kind)
		}

		var nameToCode map[string]string
		if kind == population.KindUN {
			nameToCode = labelCodes(datasets)
		}
		t, err := population.LoadFile(path, kind, nameToCode)
		if err != nil {
			return nil, err
		}
		p.logger.Info("population loaded", "kind", kind, "entities", len(t))
		tables[kind] = t
	}
	return tables, nil
}

// labelCodes inverts the discovered identifier labels into a name→code table,
// or returns nil when no source supplied labels.
func labelCodes(datasets map[string]domain.Dataset) map[string]string {
	var out map[string]string
	for _, ds := range datasets {
		for code, name := range ds.Discovery.Labels {
			if out == nil {
				out = make(map[string]string)
			}
			out[name] = code
		}
	}
	return out
}

func prepareFrame(datasets map[string]domain.Dataset, spec chart.Spec, tables map[population.Kind]population.Table) (chart.Frame, error) {
	ds, ok := datasets[spec.Source]
	if !ok {
		return chart.Frame{}, fmt.Errorf("%w: %q", ErrUnknownSource, spec.Source)
	}
	series, ok := ds.Series[spec.Dimension]
	if !ok {
		return chart.Frame{}, fmt.Errorf("%w: %s/%s", ErrUnknownDimension, spec.Source, spec.Dimension)
	}

	// Discovered display names fill in for labels the definition leaves out.
	labels := make(map[string]string, len(spec.Entities))
	for _, id := range spec.Entities {
		if name, ok := ds.Discovery.Labels[id]; ok {
			labels[id] = name
		}
	}
	maps.Copy(labels, spec.Labels)
	spec.Labels = labels

	return chart.Prepare(series, spec, tables[spec.Population])
}
