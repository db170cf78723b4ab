// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package spatial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/policestats/internal/logging"
)

// memoryPath is the DuckDB location of an ephemeral store.
const memoryPath = ":memory:"

// Config describes how to open a store.
type Config struct {
	// Path is the store file. Empty opens an ephemeral in-memory store that is
	// discarded on Close.
	Path string

	// MaxMemory is the DuckDB memory limit. Default: 1GB
	MaxMemory string

	// Threads is the number of DuckDB worker threads (0 = NumCPU).
	Threads int

	// SpatialOptional lets Open succeed without the spatial extension.
	// Geometries are then stored as WKT text and no spatial index is built.
	SpatialOptional bool

	// Offline skips extension downloads and only loads installed extensions.
	Offline bool

	// Plain opens a bare relational store: the spatial extension is not
	// loaded and no spatial metadata is created. Rows are still name-keyed.
	Plain bool

	// Trace logs every statement at debug level.
	Trace bool

	// ExtensionTimeout bounds each extension statement. Default: 30s
	ExtensionTimeout time.Duration
}

// Store is a scoped handle to a spatially enabled DuckDB database.
// A Store is not safe for concurrent use; open one per unit of work and
// Close it when done.
type Store struct {
	conn             *sql.DB
	cfg              Config
	spatialAvailable bool
	closed           bool
}

// Open opens (creating if needed) the store at cfg.Path, loads the spatial
// extension and initializes spatial metadata when the store lacks it. A
// Plain store skips both.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.MaxMemory == "" {
		cfg.MaxMemory = "1GB"
	}
	if cfg.ExtensionTimeout <= 0 {
		cfg.ExtensionTimeout = 30 * time.Second
	}
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	location := cfg.Path
	if location == "" {
		location = memoryPath
	} else {
		// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
		dbDir := filepath.Dir(location)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Auto-install stays off so opening never reaches the network. Auto-load
	// stays on so a file whose tables use GEOMETRY can be reopened with an
	// installed extension.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=true",
		location, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps every statement, LOAD included, on the same session.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to %s: %w", location, err)
	}

	s := &Store{conn: conn, cfg: cfg}

	if !cfg.Plain {
		if err := s.loadSpatial(ctx); err != nil {
			closeQuietly(conn)
			return nil, err
		}

		if err := s.initSpatialMetadata(ctx); err != nil {
			closeQuietly(conn)
			return nil, fmt.Errorf("failed to initialize spatial metadata: %w", err)
		}
	}

	logging.Debug().
		Str("path", location).
		Bool("plain", cfg.Plain).
		Bool("spatial_extension", s.spatialAvailable).
		Msg("Spatial store opened")

	return s, nil
}

// loadSpatial loads the spatial extension, degrading to WKT storage when the
// store is configured to tolerate a missing extension.
func (s *Store) loadSpatial(ctx context.Context) error {
	if isExtensionInstalledLocally(spatialExtension.Name) {
		logging.Debug().Str("extension", spatialExtension.Name).Msg("Extension found locally, skipping download")
	}

	loader := &extensionLoader{
		exec:    s.execWithHardTimeout,
		breaker: installBreaker,
		retry:   defaultRetryConfig,
		offline: s.cfg.Offline,
	}

	err := loader.load(ctx, &spatialExtension)
	if err == nil {
		s.spatialAvailable = true
		return nil
	}

	if s.cfg.SpatialOptional {
		logging.Warn().Str("extension", spatialExtension.Name).Err(err).Msg(spatialExtension.WarningMessage)
		s.spatialAvailable = false
		return nil
	}

	return fmt.Errorf("%w: %w", ErrSpatialUnavailable, err)
}

// execWithHardTimeout executes a statement with a goroutine-based hard timeout.
// DuckDB CGO calls don't respect context cancellation, so the timeout is
// enforced via select.
func (s *Store) execWithHardTimeout(ctx context.Context, query string) error {
	traceSQL(s.cfg.Trace, query, 0)
	resultCh := make(chan error, 1)

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtensionTimeout)
	defer cancel()

	go func() {
		_, err := s.conn.ExecContext(execCtx, query)
		resultCh <- err
	}()

	select {
	case err := <-resultCh:
		return err
	case <-time.After(s.cfg.ExtensionTimeout):
		return fmt.Errorf("operation timed out after %v", s.cfg.ExtensionTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SpatialAvailable reports whether the spatial extension is loaded, i.e.
// whether GEOMETRY columns and ST_* functions can be used.
func (s *Store) SpatialAvailable() bool {
	return s.spatialAvailable
}

// Path returns the store file, or "" for an ephemeral store.
func (s *Store) Path() string {
	return s.cfg.Path
}

// Ephemeral reports whether the store lives only in memory.
func (s *Store) Ephemeral() bool {
	return s.cfg.Path == ""
}

// Exec runs a statement outside any transaction.
func (s *Store) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if s.closed {
		return nil, ErrClosed
	}
	traceSQL(s.cfg.Trace, query, len(args))
	return s.conn.ExecContext(ctx, query, args...)
}

// Query runs a query and returns every result row.
func (s *Store) Query(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	if s.closed {
		return nil, ErrClosed
	}
	traceSQL(s.cfg.Trace, query, len(args))
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// QueryRow runs a query expected to return exactly one row.
func (s *Store) QueryRow(ctx context.Context, query string, args ...interface{}) (Row, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return Row{}, err
	}
	if len(rows) != 1 {
		return Row{}, fmt.Errorf("expected 1 row, got %d", len(rows))
	}
	return rows[0], nil
}

// CountRows returns the number of rows in table.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	row, err := s.QueryRow(ctx, "SELECT count(*) AS n FROM "+QuoteIdent(table))
	if err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return row.Int64("n")
}

// TableExists reports whether table exists in the current schema.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	row, err := s.QueryRow(ctx,
		"SELECT count(*) AS n FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1",
		table)
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", table, err)
	}
	n, err := row.Int64("n")
	return n > 0, err
}

// Checkpoint forces a WAL checkpoint
func (s *Store) Checkpoint(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	return s.checkpoint(ctx)
}

func (s *Store) checkpoint(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close releases the store. File-backed stores are checkpointed first so
// every committed write is in the database file; a failed checkpoint is
// returned even though the connection is still closed. Close is idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var checkpointErr error
	if !s.Ephemeral() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		checkpointErr = s.checkpoint(ctx)
		cancel()
	}

	var closeErr error
	if err := s.conn.Close(); err != nil {
		closeErr = fmt.Errorf("failed to close database: %w", err)
	}
	return errors.Join(checkpointErr, closeErr)
}

// traceSQL logs one statement when tracing is enabled.
func traceSQL(enabled bool, query string, args int) {
	if !enabled {
		return
	}
	logging.Debug().Str("sql", query).Int("args", args).Msg("Executing statement")
}
