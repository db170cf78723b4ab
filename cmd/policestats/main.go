// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

// Package main is the entry point for the policestats ingestion command.
//
// policestats loads the police.uk crime extracts for the configured forces
// and periods into a DuckDB spatial store:
//
//	policestats build/crime.duckdb
//
// The run stages the archive, creates one table per force and category, then
// loads periods outermost, forces next and categories innermost. Missing
// source files are logged and skipped. Any other failure ends the run with
// exit status 1.
//
// # Configuration
//
// Koanf layers, highest priority last:
//   - Built-in defaults
//   - policestats.yaml, or the file named by POLICESTATS_CONFIG
//   - Environment variables (PIPELINE_FORCES, PIPELINE_PERIODS, LOG_LEVEL, ...)
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/tomtom215/policestats/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(cli.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitError)
	}
}
