package config

import (
	"errors"
	"os"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/population"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Source files. Any subset may be configured.
	LinelistPath        string
	AggregatePath       string
	ConfirmedMatrixPath string
	DeathsMatrixPath    string
	SnapshotDir         string

	// Population denominators.
	UNPopulationPath string
	DEPopulationPath string
	USPopulationPath string

	ChartsFile string

	KafkaBrokers   []string
	KafkaSinkTopic string
	PublishEnabled bool

	HTTPAddr        string
	ServeMetrics    bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LinelistPath:        os.Getenv("LINELIST_PATH"),
		AggregatePath:       os.Getenv("AGGREGATE_PATH"),
		ConfirmedMatrixPath: os.Getenv("CONFIRMED_MATRIX_PATH"),
		DeathsMatrixPath:    os.Getenv("DEATHS_MATRIX_PATH"),
		SnapshotDir:         os.Getenv("SNAPSHOT_DIR"),

		UNPopulationPath: os.Getenv("UN_POPULATION_PATH"),
		DEPopulationPath: os.Getenv("DE_POPULATION_PATH"),
		USPopulationPath: os.Getenv("US_POPULATION_PATH"),

		ChartsFile: os.Getenv("CHARTS_FILE"),

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "epi-chart-frames"),
		PublishEnabled: sharedcfg.EnvOrDefault("PUBLISH_ENABLED", "true") == "true",

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ServeMetrics:    os.Getenv("SERVE_METRICS") == "true",
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if (cfg.ConfirmedMatrixPath == "") != (cfg.DeathsMatrixPath == "") {
		return nil, errors.New("CONFIRMED_MATRIX_PATH and DEATHS_MATRIX_PATH must be set together")
	}
	if cfg.LinelistPath == "" && cfg.AggregatePath == "" && cfg.ConfirmedMatrixPath == "" && cfg.SnapshotDir == "" {
		return nil, errors.New("no source configured: set LINELIST_PATH, AGGREGATE_PATH, CONFIRMED_MATRIX_PATH/DEATHS_MATRIX_PATH or SNAPSHOT_DIR")
	}
	if cfg.PublishEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

// PopulationPaths returns the configured population files by kind.
func (c *Config) PopulationPaths() map[population.Kind]string {
	paths := make(map[population.Kind]string, 3)
	if c.UNPopulationPath != "" {
		paths[population.KindUN] = c.UNPopulationPath
	}
	if c.DEPopulationPath != "" {
		paths[population.KindDE] = c.DEPopulationPath
	}
	if c.USPopulationPath != "" {
		paths[population.KindUS] = c.USPopulationPath
	}
	return paths
}
