package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/aggregate"
	"github.com/couchcryptid/epi-series-etl/internal/adapter/linelist"
	"github.com/couchcryptid/epi-series-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/epi-series-etl/internal/adapter/widematrix"
	"github.com/couchcryptid/epi-series-etl/internal/config"
)

// SourcesFromConfig returns a reader for every configured input, in a fixed order.
func SourcesFromConfig(cfg *config.Config, logger *slog.Logger) []Source {
	var sources []Source
	if cfg.LinelistPath != "" {
		sources = append(sources, linelist.NewReader(cfg.LinelistPath, logger))
	}
	if cfg.AggregatePath != "" {
		sources = append(sources, aggregate.NewReader(cfg.AggregatePath, logger))
	}
	if cfg.ConfirmedMatrixPath != "" && cfg.DeathsMatrixPath != "" {
		sources = append(sources, widematrix.NewReader(cfg.ConfirmedMatrixPath, cfg.DeathsMatrixPath, logger))
	}
	if cfg.SnapshotDir != "" {
		sources = append(sources, snapshot.NewReader(cfg.SnapshotDir, logger))
	}
	return sources
}
