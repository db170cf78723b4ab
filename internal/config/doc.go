// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

/*
Package config provides configuration loading and validation for policestats.

Configuration is an explicit struct handed to the pipeline. It is layered with
koanf: built-in defaults, then an optional YAML file, then environment
variables. The built-in defaults reproduce the published extract exactly, so a
run with no file and no environment behaves the same on every machine.

# Configuration Sources

  - Defaults: defaultConfig()
  - YAML file: $POLICESTATS_CONFIG, policestats.yaml, /etc/policestats/config.yaml
  - Environment variables (a .env file is loaded by the CLI first)

# Environment Variables

Database (DatabaseConfig):
  - DUCKDB_PATH: Store file (the CLI argument overrides it)
  - DUCKDB_MAX_MEMORY: Memory limit (default: 1GB)
  - DUCKDB_THREADS: Worker threads (default: 0, NumCPU)
  - DUCKDB_SPATIAL_OPTIONAL: Store WKT text when the spatial extension is unavailable
  - DUCKDB_OFFLINE: Never download extensions; use only what is installed
  - DUCKDB_TRACE: Log every SQL statement at debug level

Source (SourceConfig):
  - SOURCE_ARCHIVE_PATH: Archive to stage (default: ./downloads/2024-10.zip)
  - SOURCE_STAGING_DIR: Extraction directory (default: build/crime-data)

Pipeline (PipelineConfig), comma-separated:
  - PIPELINE_FORCES (default: metropolitan)
  - PIPELINE_PERIODS (default: 2024-10 back to 2024-04)
  - PIPELINE_CATEGORIES (default: outcomes,stop-and-search,street)

Ledger (LedgerConfig):
  - LEDGER_ENABLED, LEDGER_PATH, LEDGER_SKIP_LOADED

Metrics and logging:
  - METRICS_TEXTFILE_PATH
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    return fmt.Errorf("load config: %w", err)
	}
	cfg.Database.Path = args[0]
*/
package config
