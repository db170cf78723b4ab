// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tomtom215/policestats/internal/schema"
	"github.com/tomtom215/policestats/internal/spatial"
)

var errFlush = errors.New("flush failed")

// failingClose closes the store and then reports errFlush.
func failingClose(st *spatial.Store) error {
	return errors.Join(st.Close(), errFlush)
}

func TestStores_EphemeralReleaseIsNoop(t *testing.T) {
	stores := setupStores(t, "")
	ctx := context.Background()

	first, release, err := stores.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := release(); err != nil {
		t.Errorf("release() error = %v", err)
	}

	second, release, err := stores.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	if first != second {
		t.Error("ephemeral acquires should share one store")
	}
}

func TestStores_ReleaseErrorFailsLoad(t *testing.T) {
	staging := t.TempDir()
	stores := setupStores(t, filepath.Join(t.TempDir(), "crime.duckdb"))
	ensureTables(t, stores, "kent", schema.Street)
	writeSource(t, staging, "2024-10", "kent", schema.Street, streetHeader, streetRows(3))

	stores.closeStore = failingClose
	_, err := NewLoader(stores, LoaderConfig{StagingDir: staging}).
		LoadPeriod(context.Background(), "2024-10", "kent", schema.Street)
	if !errors.Is(err, errFlush) {
		t.Fatalf("LoadPeriod() error = %v, want %v", err, errFlush)
	}
}

func TestStores_ReleaseErrorFailsEnsureSchemas(t *testing.T) {
	stores := setupStores(t, filepath.Join(t.TempDir(), "crime.duckdb"))
	stores.closeStore = failingClose

	n, err := NewMaterializer(stores).EnsureSchemas(context.Background(), []string{"kent"}, schema.Categories())
	if !errors.Is(err, errFlush) {
		t.Fatalf("EnsureSchemas() error = %v, want %v", err, errFlush)
	}
	if n != 3 {
		t.Errorf("EnsureSchemas() = %d tables, want 3 before the failed flush", n)
	}
}
