// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/policestats/internal/config"
	"github.com/tomtom215/policestats/internal/spatial"
)

// Stores hands out spatial store handles for one unit of work each.
//
// A file-backed store is opened on Acquire and closed (flushing it) on
// release. An ephemeral store would lose its contents on close, so it is
// opened once and shared until Close.
type Stores struct {
	cfg spatial.Config

	// closeStore releases a file-backed handle.
	closeStore func(*spatial.Store) error

	mu     sync.Mutex
	shared *spatial.Store
}

// NewStores returns a handle source for cfg.
func NewStores(cfg spatial.Config) *Stores {
	return &Stores{cfg: cfg, closeStore: (*spatial.Store).Close}
}

// StoreConfig maps the database section onto the connector config.
func StoreConfig(db config.DatabaseConfig) spatial.Config {
	return spatial.Config{
		Path:            db.Path,
		MaxMemory:       db.MaxMemory,
		Threads:         db.Threads,
		SpatialOptional: db.SpatialOptional,
		Offline:         db.Offline,
		Trace:           db.Trace,
	}
}

// Acquire returns a store and the func that releases it. The release func
// must be called exactly once; for a file-backed store it flushes the file
// and returns any flush or close error.
func (s *Stores) Acquire(ctx context.Context) (*spatial.Store, func() error, error) {
	if s.cfg.Path != "" {
		st, err := spatial.Open(ctx, s.cfg)
		if err != nil {
			return nil, nil, err
		}
		return st, func() error {
			if err := s.closeStore(st); err != nil {
				return fmt.Errorf("close store %s: %w", s.cfg.Path, err)
			}
			return nil
		}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared == nil {
		st, err := spatial.Open(ctx, s.cfg)
		if err != nil {
			return nil, nil, err
		}
		s.shared = st
	}
	return s.shared, func() error { return nil }, nil
}

// Close releases the shared ephemeral store, if one was opened.
func (s *Stores) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared == nil {
		return nil
	}
	err := s.shared.Close()
	s.shared = nil
	return err
}
