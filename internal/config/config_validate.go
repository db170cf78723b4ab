// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package config

import (
	"fmt"
	"regexp"

	"github.com/tomtom215/policestats/internal/validation"
)

// memoryLimitPattern matches DuckDB memory limits such as "512MB" or "2GB".
var memoryLimitPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?\s*(B|KB|MB|GB|TB|KiB|MiB|GiB|TiB)$`)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	for _, section := range []struct {
		name string
		v    interface{}
	}{
		{"source", &c.Source},
		{"pipeline", &c.Pipeline},
		{"logging", &c.Logging},
	} {
		if verr := validation.ValidateStruct(section.v); verr != nil {
			return fmt.Errorf("%s: %w", section.name, verr)
		}
	}

	return c.validateLedger()
}

func (c *Config) validateDatabase() error {
	if c.Database.MaxMemory != "" && !memoryLimitPattern.MatchString(c.Database.MaxMemory) {
		return fmt.Errorf("DUCKDB_MAX_MEMORY must be a size such as 1GB, got %q", c.Database.MaxMemory)
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be zero or positive, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateLedger() error {
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("LEDGER_PATH is required when LEDGER_ENABLED=true")
	}
	if c.Ledger.SkipLoaded && !c.Ledger.Enabled {
		return fmt.Errorf("LEDGER_SKIP_LOADED requires LEDGER_ENABLED=true")
	}
	return nil
}
