// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every policestats metric. A batch job has no scrape
// endpoint, so the registry is written to a node-exporter textfile instead.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Store Metrics
	DBQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB statements in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of failed DuckDB statements",
		},
		[]string{"operation", "table", "error_type"},
	)

	ExtensionInstallAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_extension_install_attempts_total",
			Help: "Extension install rounds by outcome",
		},
		[]string{"extension", "result"}, // "success", "failure", "rejected"
	)

	ExtensionBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "duckdb_extension_breaker_state",
			Help: "Extension install circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Ingestion Metrics
	RowsLoaded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policestats_rows_loaded_total",
			Help: "Total number of CSV rows inserted",
		},
		[]string{"force", "category"},
	)

	FilesProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policestats_files_total",
			Help: "Source files by load outcome",
		},
		[]string{"status"}, // "loaded", "skipped", "already_loaded", "failed"
	)

	FileLoadDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "policestats_file_load_duration_seconds",
			Help:    "Time to load one source file in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"category"},
	)

	SchemaStatements = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policestats_schema_statements_total",
			Help: "Schema creation statements executed",
		},
		[]string{"category"},
	)

	SpatialIndexFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policestats_spatial_index_failures_total",
			Help: "Spatial index builds that failed and were skipped",
		},
		[]string{"category"},
	)

	// Archive Metrics
	ArchiveStaging = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policestats_archive_staging_total",
			Help: "Archive staging outcomes",
		},
		[]string{"result"}, // "extracted", "already_staged"
	)

	ArchiveEntriesExtracted = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "policestats_archive_entries_extracted_total",
			Help: "Files written while extracting archives",
		},
	)

	// Run Metrics
	RunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "policestats_run_duration_seconds",
			Help: "Wall time of the last ingestion run",
		},
	)

	RunLastSuccess = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "policestats_run_last_success",
			Help: "Whether the last ingestion run succeeded (1) or failed (0)",
		},
	)

	RunLastTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "policestats_run_last_timestamp_seconds",
			Help: "Unix time the last ingestion run finished",
		},
	)
)

// RecordDBQuery records one store statement.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordFileLoaded records a committed file.
func RecordFileLoaded(force, category string, rows int64, duration time.Duration) {
	RowsLoaded.WithLabelValues(force, category).Add(float64(rows))
	FilesProcessed.WithLabelValues("loaded").Inc()
	FileLoadDuration.WithLabelValues(category).Observe(duration.Seconds())
}

// RecordFileStatus records a file that was not loaded ("skipped",
// "already_loaded" or "failed").
func RecordFileStatus(status string) {
	FilesProcessed.WithLabelValues(status).Inc()
}

// RecordStaging records one archive staging call.
func RecordStaging(alreadyStaged bool, entries int) {
	if alreadyStaged {
		ArchiveStaging.WithLabelValues("already_staged").Inc()
		return
	}
	ArchiveStaging.WithLabelValues("extracted").Inc()
	ArchiveEntriesExtracted.Add(float64(entries))
}

// RecordRun records the end of an ingestion run.
func RecordRun(duration time.Duration, finished time.Time, err error) {
	RunDuration.Set(duration.Seconds())
	RunLastTimestamp.Set(float64(finished.Unix()))
	if err != nil {
		RunLastSuccess.Set(0)
		return
	}
	RunLastSuccess.Set(1)
}

// WriteTextfile writes the registry to path in the text exposition format.
// The file is written to a temporary name and renamed, so node-exporter never
// reads a partial file.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
