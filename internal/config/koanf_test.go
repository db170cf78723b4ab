// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/knadh/koanf/v2"
)

// isolate points config lookup at an empty directory so stray files and
// variables on the host cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	for env := range envKeys {
		t.Setenv(strings.ToUpper(env), "")
		os.Unsetenv(strings.ToUpper(env))
	}
	return dir
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path != "" {
		t.Errorf("Database.Path should be empty by default, got %q", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "1GB" {
		t.Errorf("Database.MaxMemory = %q, want 1GB", cfg.Database.MaxMemory)
	}
	if cfg.Source.ArchivePath != "./downloads/2024-10.zip" {
		t.Errorf("Source.ArchivePath = %q", cfg.Source.ArchivePath)
	}
	if cfg.Source.StagingDir != "build/crime-data" {
		t.Errorf("Source.StagingDir = %q", cfg.Source.StagingDir)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Forces, []string{"metropolitan"}) {
		t.Errorf("Pipeline.Forces = %v", cfg.Pipeline.Forces)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Periods, DefaultPeriods) {
		t.Errorf("Pipeline.Periods = %v", cfg.Pipeline.Periods)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Categories, []string{"outcomes", "stop-and-search", "street"}) {
		t.Errorf("Pipeline.Categories = %v", cfg.Pipeline.Categories)
	}
	if cfg.Ledger.Enabled || cfg.Ledger.SkipLoaded {
		t.Error("Ledger should be disabled by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultPeriodsNotShared(t *testing.T) {
	cfg := defaultConfig()
	cfg.Pipeline.Periods[0] = "1999-01"
	if DefaultPeriods[0] != "2024-10" {
		t.Fatalf("defaultConfig must copy DefaultPeriods, got %q", DefaultPeriods[0])
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, defaultConfig()) {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)

	t.Setenv("PIPELINE_FORCES", "avon-and-somerset, north-wales")
	t.Setenv("PIPELINE_PERIODS", "2024-01")
	t.Setenv("PIPELINE_CATEGORIES", "street")
	t.Setenv("DUCKDB_THREADS", "4")
	t.Setenv("DUCKDB_SPATIAL_OPTIONAL", "true")
	t.Setenv("DUCKDB_TRACE", "true")
	t.Setenv("LEDGER_ENABLED", "true")
	t.Setenv("LEDGER_SKIP_LOADED", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Pipeline.Forces, []string{"avon-and-somerset", "north-wales"}) {
		t.Errorf("Pipeline.Forces = %v", cfg.Pipeline.Forces)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Periods, []string{"2024-01"}) {
		t.Errorf("Pipeline.Periods = %v", cfg.Pipeline.Periods)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Categories, []string{"street"}) {
		t.Errorf("Pipeline.Categories = %v", cfg.Pipeline.Categories)
	}
	if cfg.Database.Threads != 4 {
		t.Errorf("Database.Threads = %d, want 4", cfg.Database.Threads)
	}
	if !cfg.Database.SpatialOptional {
		t.Error("Database.SpatialOptional should be true")
	}
	if !cfg.Database.Trace {
		t.Error("Database.Trace should be true")
	}
	if !cfg.Ledger.Enabled || !cfg.Ledger.SkipLoaded {
		t.Errorf("Ledger = %+v, want enabled with skip", cfg.Ledger)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)

	yamlContent := `
source:
  archive_path: /data/2023-06.zip
pipeline:
  forces:
    - kent
    - essex
  periods:
    - 2023-06
metrics:
  textfile_path: /var/lib/node_exporter/policestats.prom
`
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	// Environment wins over the file.
	t.Setenv("PIPELINE_PERIODS", "2023-05,2023-04")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.ArchivePath != "/data/2023-06.zip" {
		t.Errorf("Source.ArchivePath = %q", cfg.Source.ArchivePath)
	}
	if cfg.Source.StagingDir != "build/crime-data" {
		t.Errorf("Source.StagingDir should keep its default, got %q", cfg.Source.StagingDir)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Forces, []string{"kent", "essex"}) {
		t.Errorf("Pipeline.Forces = %v", cfg.Pipeline.Forces)
	}
	if !reflect.DeepEqual(cfg.Pipeline.Periods, []string{"2023-05", "2023-04"}) {
		t.Errorf("Pipeline.Periods = %v", cfg.Pipeline.Periods)
	}
	if cfg.Metrics.TextfilePath != "/var/lib/node_exporter/policestats.prom" {
		t.Errorf("Metrics.TextfilePath = %q", cfg.Metrics.TextfilePath)
	}
}

func TestLoad_DefaultPathSearch(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "policestats.yaml"), []byte("logging:\n  format: console\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoad_InvalidPeriod(t *testing.T) {
	isolate(t)
	t.Setenv("PIPELINE_PERIODS", "2024-10,October")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for malformed period")
	}
	if !strings.Contains(err.Error(), "Periods[1]") {
		t.Errorf("error should name the failing entry, got %v", err)
	}
}

func TestSplitLists(t *testing.T) {
	k := koanf.New(".")
	_ = k.Set("pipeline.forces", " kent ,, essex ")
	_ = k.Set("pipeline.periods", []string{"2024-10"})
	_ = k.Set("pipeline.categories", "")

	if err := splitLists(k); err != nil {
		t.Fatalf("splitLists() error = %v", err)
	}

	if got := k.Strings("pipeline.forces"); !reflect.DeepEqual(got, []string{"kent", "essex"}) {
		t.Errorf("forces = %v", got)
	}
	if got := k.Strings("pipeline.periods"); !reflect.DeepEqual(got, []string{"2024-10"}) {
		t.Errorf("periods = %v", got)
	}
	if got := k.String("pipeline.categories"); got != "" {
		t.Errorf("empty categories should stay empty, got %q", got)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"PIPELINE_FORCES", "pipeline.forces"},
		{"DUCKDB_MAX_MEMORY", "database.max_memory"},
		{"LEDGER_SKIP_LOADED", "ledger.skip_loaded"},
		{"METRICS_TEXTFILE_PATH", "metrics.textfile_path"},
		{"LOG_FORMAT", "logging.format"},
		{"HOME", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := envKey(tt.key); got != tt.want {
				t.Errorf("envKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "absent.yaml"))

	_, err := Load()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() error = %v, want fs.ErrNotExist", err)
	}
}
