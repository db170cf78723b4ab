// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package config

import "github.com/tomtom215/policestats/internal/logging"

// Config holds all configuration for one ingestion run.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Source   SourceConfig   `koanf:"source"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Ledger   LedgerConfig   `koanf:"ledger"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds spatial store settings.
type DatabaseConfig struct {
	Path            string `koanf:"path"`             // Store file; empty means an ephemeral in-memory store
	MaxMemory       string `koanf:"max_memory"`       // DuckDB memory limit, e.g. "1GB"
	Threads         int    `koanf:"threads"`          // Number of DuckDB threads (0 = use NumCPU)
	SpatialOptional bool   `koanf:"spatial_optional"` // Fall back to WKT text when the spatial extension is missing
	Offline         bool   `koanf:"offline"`          // Never download extensions; only load installed ones
	Trace           bool   `koanf:"trace"`            // Log every SQL statement at debug level
}

// SourceConfig locates the downloaded archive and its extraction directory.
type SourceConfig struct {
	ArchivePath string `koanf:"archive_path" validate:"required"`
	StagingDir  string `koanf:"staging_dir" validate:"required"`
}

// PipelineConfig enumerates the work of one run. Periods are loaded
// outermost, then forces, then categories.
type PipelineConfig struct {
	Forces     []string `koanf:"forces" validate:"min=1,dive,identifier"`
	Periods    []string `koanf:"periods" validate:"min=1,dive,period"`
	Categories []string `koanf:"categories" validate:"min=1,dive,oneof=outcomes stop-and-search street"`
}

// LedgerConfig controls the persistent record of loaded files.
type LedgerConfig struct {
	// Enabled turns on the Badger-backed ledger.
	// Default: false
	Enabled bool `koanf:"enabled"`

	// Path is the Badger directory.
	// Default: build/ledger
	Path string `koanf:"path"`

	// SkipLoaded skips files whose digest was already loaded in an earlier
	// run. Off by default, so reloading a period appends its rows again.
	// Default: false
	SkipLoaded bool `koanf:"skip_loaded"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// TextfilePath receives the run's metrics in text exposition format.
	// Empty disables the export.
	TextfilePath string `koanf:"textfile_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// LoggingOptions converts the logging section to the logging package config.
func (c *Config) LoggingOptions() logging.Config {
	opts := logging.DefaultConfig()
	opts.Level = c.Logging.Level
	opts.Format = c.Logging.Format
	opts.Caller = c.Logging.Caller
	return opts
}
