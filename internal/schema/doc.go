// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

// Package schema is the static registry of category tables.
//
// Each category maps to a Script: an ordered, idempotent creation script
// (table, spatial index, geometry column registration) and a parameterized
// insert statement. Both carry ForcePlaceholder in place of the force
// identifier; Script.Render fills it in.
//
// Insert parameters are positional. Script.Params lists the normalized
// source field bound to each position, ending with longitude and latitude,
// which become the point geometry. Coordinates that do not parse as numbers
// produce a NULL geometry rather than an error.
package schema
