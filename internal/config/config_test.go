// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package config

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:   "memory in MiB",
			mutate: func(c *Config) { c.Database.MaxMemory = "512MiB" },
		},
		{
			name:    "bad memory",
			mutate:  func(c *Config) { c.Database.MaxMemory = "lots" },
			wantErr: "DUCKDB_MAX_MEMORY",
		},
		{
			name:    "negative threads",
			mutate:  func(c *Config) { c.Database.Threads = -1 },
			wantErr: "DUCKDB_THREADS",
		},
		{
			name:    "missing archive",
			mutate:  func(c *Config) { c.Source.ArchivePath = "" },
			wantErr: "ArchivePath is required",
		},
		{
			name:    "no forces",
			mutate:  func(c *Config) { c.Pipeline.Forces = nil },
			wantErr: "Forces",
		},
		{
			name:    "unknown category",
			mutate:  func(c *Config) { c.Pipeline.Categories = []string{"street", "burglary"} },
			wantErr: "Categories[1]",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Format must be one of",
		},
		{
			name: "ledger without path",
			mutate: func(c *Config) {
				c.Ledger.Enabled = true
				c.Ledger.Path = ""
			},
			wantErr: "LEDGER_PATH",
		},
		{
			name:    "skip without ledger",
			mutate:  func(c *Config) { c.Ledger.SkipLoaded = true },
			wantErr: "LEDGER_SKIP_LOADED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoggingOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Caller = true

	opts := cfg.LoggingOptions()
	if opts.Level != "warn" || !opts.Caller || opts.Format != "json" {
		t.Errorf("LoggingOptions() = %+v", opts)
	}
	if !opts.Timestamp {
		t.Error("LoggingOptions() should keep timestamps on")
	}
}
