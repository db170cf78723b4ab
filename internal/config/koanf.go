// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// SearchPaths are tried in order when ConfigPathEnvVar is unset. The first
// existing file wins.
var SearchPaths = []string{
	"policestats.yaml",
	"policestats.yml",
	"/etc/policestats/config.yaml",
	"/etc/policestats/config.yml",
}

// ConfigPathEnvVar names an explicit YAML file. A set but missing path is an
// error rather than a silent fallback.
const ConfigPathEnvVar = "POLICESTATS_CONFIG"

// DefaultPeriods are the monthly extracts contained in the default archive,
// newest first.
var DefaultPeriods = []string{
	"2024-10",
	"2024-09",
	"2024-08",
	"2024-07",
	"2024-06",
	"2024-05",
	"2024-04",
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxMemory: "1GB",
		},
		Source: SourceConfig{
			ArchivePath: "./downloads/2024-10.zip",
			StagingDir:  "build/crime-data",
		},
		Pipeline: PipelineConfig{
			Forces:     []string{"metropolitan"},
			Periods:    append([]string(nil), DefaultPeriods...),
			Categories: []string{"outcomes", "stop-and-search", "street"},
		},
		Ledger: LedgerConfig{
			Path: "build/ledger",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration without consulting files or
// the environment.
func Default() *Config {
	return defaultConfig()
}

// Load layers built-in defaults, an optional YAML file and environment
// variables, in that order, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path, err := configFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitLists(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configFile resolves the YAML file to read, or "" when there is none.
func configFile() (string, error) {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s: %w", ConfigPathEnvVar, err)
		}
		return p, nil
	}

	for _, p := range SearchPaths {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", nil
}

// listKeys hold slices in Config. Environment variables deliver them as
// comma-separated strings.
var listKeys = []string{
	"pipeline.forces",
	"pipeline.periods",
	"pipeline.categories",
}

func splitLists(k *koanf.Koanf) error {
	for _, key := range listKeys {
		s, ok := k.Get(key).(string)
		if !ok || s == "" {
			continue
		}

		items := strings.FieldsFunc(s, func(r rune) bool { return r == ',' })
		out := items[:0]
		for _, it := range items {
			if it = strings.TrimSpace(it); it != "" {
				out = append(out, it)
			}
		}
		if len(out) == 0 {
			continue
		}
		if err := k.Set(key, out); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// envKeys maps lowercased environment variable names to config keys.
var envKeys = map[string]string{
	"duckdb_path":             "database.path",
	"duckdb_max_memory":       "database.max_memory",
	"duckdb_threads":          "database.threads",
	"duckdb_spatial_optional": "database.spatial_optional",
	"duckdb_offline":          "database.offline",
	"duckdb_trace":            "database.trace",

	"source_archive_path": "source.archive_path",
	"source_staging_dir":  "source.staging_dir",

	"pipeline_forces":     "pipeline.forces",
	"pipeline_periods":    "pipeline.periods",
	"pipeline_categories": "pipeline.categories",

	"ledger_enabled":     "ledger.enabled",
	"ledger_path":        "ledger.path",
	"ledger_skip_loaded": "ledger.skip_loaded",

	"metrics_textfile_path": "metrics.textfile_path",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envKey returns the config key for an environment variable. Unknown
// variables map to "" and are dropped by the provider.
func envKey(name string) string {
	return envKeys[strings.ToLower(name)]
}
