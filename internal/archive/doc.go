// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

/*
Package archive stages the published crime-data zip into a working directory.

Staging is idempotent: when the target directory exists it is left untouched
and the result reports AlreadyStaged. Otherwise the archive is extracted into
a sibling "<target>.partial" directory which is renamed into place only once
every entry has been written, so an interrupted extraction is retried on the
next run instead of being mistaken for a complete one.

Entries whose names would resolve outside the target directory are rejected
with ErrUnsafePath; nothing from such an archive is kept.

Usage:

	res, err := archive.Stage(ctx, "./downloads/2024-10.zip", "build/crime-data")
	if err != nil {
	    return err
	}
	if res.AlreadyStaged {
	    // previous run already extracted it
	}
*/
package archive
