package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/epi-series-etl/internal/chart"
	"gopkg.in/yaml.v3"
)

// chartsFile is the YAML layout of CHARTS_FILE.
type chartsFile struct {
	Charts []chart.Spec `yaml:"charts"`
}

// LoadCharts reads chart definitions from path. An empty path yields no charts.
func LoadCharts(path string) ([]chart.Spec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read charts file: %w", err)
	}
	specs, err := ParseCharts(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// ParseCharts decodes and validates chart definitions. Unknown keys are
// rejected so typos in a definition do not silently change a chart.
func ParseCharts(data []byte) ([]chart.Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f chartsFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode charts: %w", err)
	}

	seen := make(map[string]bool, len(f.Charts))
	for i, s := range f.Charts {
		if s.Name == "" {
			return nil, fmt.Errorf("chart %d: name is required", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("chart %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if s.Source == "" || s.Dimension == "" {
			return nil, fmt.Errorf("chart %q: source and dimension are required", s.Name)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("chart %q: %w", s.Name, err)
		}
	}
	return f.Charts, nil
}
