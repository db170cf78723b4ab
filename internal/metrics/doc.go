// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

/*
Package metrics provides Prometheus instrumentation for ingestion runs.

All metrics live in a dedicated Registry rather than the default one. An
ingestion run is a short-lived batch process, so instead of serving /metrics
the CLI writes the registry to a node-exporter textfile at the end of a run
when METRICS_TEXTFILE_PATH is set:

	metrics.RecordRun(stats.Duration(), stats.EndTime, err)
	if path := cfg.Metrics.TextfilePath; path != "" {
	    if err := metrics.WriteTextfile(path); err != nil {
	        logging.Warn().Err(err).Msg("Failed to write metrics")
	    }
	}

# Available Metrics

Ingestion:
  - policestats_rows_loaded_total{force,category}
  - policestats_files_total{status}
  - policestats_file_load_duration_seconds{category}
  - policestats_schema_statements_total{category}
  - policestats_spatial_index_failures_total{category}

Archive:
  - policestats_archive_staging_total{result}
  - policestats_archive_entries_extracted_total

Store:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table,error_type}
  - duckdb_extension_install_attempts_total{extension,result}
  - duckdb_extension_breaker_state{name}

Run:
  - policestats_run_duration_seconds
  - policestats_run_last_success
  - policestats_run_last_timestamp_seconds
*/
package metrics
