// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

// Package cli implements the policestats command: one positional argument,
// the output store path, followed by stage, materialize and load.
package cli
