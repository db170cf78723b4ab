// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package spatial

import (
	"errors"
	"io"

	"github.com/tomtom215/policestats/internal/logging"
)

var (
	// ErrSpatialUnavailable is returned by Open when the spatial extension
	// cannot be loaded and the store was not configured to tolerate that.
	ErrSpatialUnavailable = errors.New("spatial extension unavailable")

	// ErrNoColumn is returned by Row accessors for a column the row lacks.
	ErrNoColumn = errors.New("no such column")

	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("store is closed")
)

// closeWithLog closes a resource and logs any error.
// Use this for cleanup operations where errors should be acknowledged but not fail the operation.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
