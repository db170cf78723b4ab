// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

/*
Package ingest loads staged crime-data CSV files into the spatial store.

# Overview

A run has three passes, each over the configured cross product:

 1. Stage: extract the archive once (see package archive)
 2. Materialize: run every category's creation script for every force
 3. Load: for each period, force and category, insert the matching CSV

Loading follows these rules:

  - A missing source file is logged at warn level and skipped
  - All rows of one file commit in a single transaction
  - Coordinates that are not numbers store a NULL geometry
  - Reloading a period appends its rows again unless the ledger has
    SkipLoaded enabled

# Source Files

Files live at {staging}/{period}/{period}-{force}-{category}.csv. The force
is looked up first by its normalized identifier ("avon_and_somerset"), then
by the configured label ("avon-and-somerset"). Headers are normalized with
package naming, so "Falls within" binds to the falls_within column.

# Ledger

With the ledger enabled every committed file is recorded in BadgerDB under
its BLAKE2b-256 digest:

	{"run_id":"...","period":"2024-10","force":"metropolitan","category":"street",
	 "path":"build/crime-data/2024-10/2024-10-metropolitan-street.csv",
	 "rows":91234,"digest":"9f2c...","loaded_at":"2024-11-02T08:15:00Z"}

# Store Handles

Stores opens a file-backed store per unit of work (one materializer pass,
one loaded file) and closes it afterwards, which flushes it to disk. An
ephemeral store is shared for the whole run and released by Pipeline.Close.
*/
package ingest
