// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

/*
Package spatial connects to a DuckDB store with the spatial extension loaded.

A Store is a scoped resource: open it for one unit of work, defer Close, and
let Close checkpoint file-backed stores so every committed write reaches the
database file. An empty path opens an ephemeral in-memory store.

	store, err := spatial.Open(ctx, spatial.Config{Path: "crime.duckdb"})
	if err != nil {
	    return err
	}
	defer store.Close()

# Spatial Metadata

On open the store guarantees two metadata tables:

  - spatial_ref_sys: reference systems, seeded with -1 (Undefined - Cartesian),
    0 (Undefined - Geographic Long/Lat) and 4326 (WGS 84)
  - geometry_columns: one row per registered geometry column

Initialization runs only when spatial_ref_sys is missing or empty, so
reopening a store never seeds twice.

# Degraded Mode

When the spatial extension cannot be loaded and Config.SpatialOptional is
set, Open still succeeds and SpatialAvailable reports false. Callers then
store geometries as WKT text and skip spatial indexes.

# Result Rows

Query returns []Row. A Row keeps its column names bound to its values:

	rows, _ := store.Query(ctx, "SELECT srid, ref_sys_name FROM spatial_ref_sys")
	name, _ := rows[0].String("ref_sys_name")
*/
package spatial
