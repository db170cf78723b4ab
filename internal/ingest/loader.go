// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/policestats/internal/logging"
	"github.com/tomtom215/policestats/internal/metrics"
	"github.com/tomtom215/policestats/internal/naming"
	"github.com/tomtom215/policestats/internal/schema"
	"github.com/tomtom215/policestats/internal/spatial"
)

// Status is the outcome of loading one source file.
type Status string

const (
	// StatusLoaded means every row of the file was committed.
	StatusLoaded Status = "loaded"
	// StatusSkipped means the source file does not exist.
	StatusSkipped Status = "skipped"
	// StatusAlreadyLoaded means the ledger already holds the file's digest.
	StatusAlreadyLoaded Status = "already_loaded"
)

// FileResult describes one LoadPeriod call.
type FileResult struct {
	Period   string
	Force    string
	Category schema.Category
	Path     string
	Status   Status
	Rows     int64
	Digest   string
	Duration time.Duration
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// StagingDir is the directory the archive was extracted to.
	StagingDir string

	// Ledger, when set, records every committed file.
	Ledger Ledger

	// SkipLoaded skips files whose digest the ledger already holds.
	SkipLoaded bool

	// ProgressInterval is the minimum gap between progress lines while one
	// file loads. Default: 1s
	ProgressInterval time.Duration
}

// Loader inserts source CSV files into their category tables.
type Loader struct {
	stores *Stores
	cfg    LoaderConfig
}

// NewLoader returns a loader drawing store handles from stores.
func NewLoader(stores *Stores, cfg LoaderConfig) *Loader {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = time.Second
	}
	return &Loader{stores: stores, cfg: cfg}
}

// SourcePath is where the file for (period, force, category) lives below
// stagingDir, e.g. "2024-10/2024-10-metropolitan-street.csv".
func SourcePath(stagingDir, period, force string, category schema.Category) string {
	name := fmt.Sprintf("%s-%s-%s.csv", period, force, category)
	return filepath.Join(stagingDir, period, name)
}

// locate finds the source file, trying the normalized force identifier
// first and then the force label as given.
func (l *Loader) locate(period, force, forceID string, category schema.Category) (string, bool, error) {
	candidates := []string{SourcePath(l.cfg.StagingDir, period, forceID, category)}
	if force != forceID {
		candidates = append(candidates, SourcePath(l.cfg.StagingDir, period, force, category))
	}

	for _, p := range candidates {
		info, err := os.Stat(p)
		switch {
		case err == nil && !info.IsDir():
			return p, true, nil
		case err == nil, errors.Is(err, os.ErrNotExist):
		default:
			return "", false, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return candidates[0], false, nil
}

// LoadPeriod loads the file for one (period, force, category). A missing
// file is not an error: the result has StatusSkipped. All rows of a file
// commit in one transaction or none do.
func (l *Loader) LoadPeriod(ctx context.Context, period, force string, category schema.Category) (*FileResult, error) {
	start := time.Now()
	forceID := naming.Normalize(force)
	res := &FileResult{Period: period, Force: forceID, Category: category}
	log := logging.Ctx(ctx).With().
		Str("period", period).
		Str("force", forceID).
		Str("category", string(category)).
		Logger()

	path, found, err := l.locate(period, force, forceID, category)
	if err != nil {
		return nil, err
	}
	res.Path = path

	if !found {
		res.Status = StatusSkipped
		metrics.RecordFileStatus(string(StatusSkipped))
		log.Warn().Str("path", path).Msgf("No %s present for %s in %s. Skipped.", category, force, period)
		return res, nil
	}

	if l.cfg.Ledger != nil {
		if res.Digest, err = FileDigest(path); err != nil {
			return nil, err
		}
		if l.cfg.SkipLoaded {
			prev, err := l.cfg.Ledger.Lookup(ctx, res.Digest)
			if err != nil {
				return nil, err
			}
			if prev != nil {
				res.Status = StatusAlreadyLoaded
				res.Rows = prev.Rows
				metrics.RecordFileStatus(string(StatusAlreadyLoaded))
				log.Info().
					Str("path", path).
					Str("loaded_by_run", prev.RunID).
					Msg("Source file already loaded, skipped")
				return res, nil
			}
		}
	}

	log.Info().Str("path", path).Msgf("Loading %s for %s in %s...", category, force, period)

	rows, err := l.loadFile(ctx, path, forceID, category)
	if err != nil {
		metrics.RecordFileStatus("failed")
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	res.Status = StatusLoaded
	res.Rows = rows
	res.Duration = time.Since(start)
	metrics.RecordFileLoaded(forceID, string(category), rows, res.Duration)

	if l.cfg.Ledger != nil {
		entry := &LedgerEntry{
			RunID:    logging.RunIDFromContext(ctx),
			Period:   period,
			Force:    forceID,
			Category: string(category),
			Path:     path,
			Rows:     rows,
			Digest:   res.Digest,
			LoadedAt: time.Now().UTC(),
		}
		// The rows are committed; a ledger failure only costs the skip.
		if err := l.cfg.Ledger.Record(ctx, entry); err != nil {
			log.Warn().Err(err).Msg("Failed to record loaded file in ledger")
		}
	}

	log.Info().
		Int64("rows", rows).
		Dur("duration", res.Duration).
		Msg("Source file loaded")
	return res, nil
}

// loadFile inserts every row of path inside one transaction.
//
//nolint:gosec // G304: path is built from the staging directory
func (l *Loader) loadFile(ctx context.Context, path, forceID string, category schema.Category) (rows int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck // read-only

	src, err := newCSVSource(f)
	if err != nil {
		return 0, err
	}
	if len(src.Duplicates) > 0 {
		logging.Ctx(ctx).Warn().
			Strs("columns", src.Duplicates).
			Str("path", path).
			Msg("Duplicate CSV headers, keeping first occurrence")
	}

	st, release, err := l.stores.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		// A committed file only counts once the store is flushed.
		if cerr := release(); cerr != nil && err == nil {
			rows, err = 0, cerr
		}
	}()

	script, err := schema.ScriptFor(category, schema.ModeFor(st))
	if err != nil {
		return 0, err
	}
	script = script.Render(forceID)

	progress := rate.Sometimes{Interval: l.cfg.ProgressInterval}
	start := time.Now()

	err = st.InTx(ctx, func(tx *spatial.Tx) error {
		stmt, err := tx.Prepare(ctx, script.Insert)
		if err != nil {
			return err
		}
		defer stmt.Close() //nolint:errcheck // closed with the transaction

		for {
			row, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, script.Bind(row)...); err != nil {
				return fmt.Errorf("insert record %d into %s: %w", src.Line(), script.Table, err)
			}
			rows++

			progress.Do(func() {
				logging.Ctx(ctx).Debug().
					Str("table", script.Table).
					Int64("rows", rows).
					Msg("Loading rows")
			})
		}
	})
	metrics.RecordDBQuery("insert", script.Table, time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return rows, nil
}
