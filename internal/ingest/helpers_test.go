// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/policestats/internal/schema"
	"github.com/tomtom215/policestats/internal/spatial"
)

const streetHeader = "Crime ID,Month,Reported by,Falls within,Longitude,Latitude,Location,LSOA code,LSOA name,Crime type,Last outcome category,Context"

// testStoreConfig never downloads extensions and tolerates a missing
// spatial extension.
func testStoreConfig(path string) spatial.Config {
	return spatial.Config{
		Path:            path,
		MaxMemory:       "512MB",
		Threads:         1,
		SpatialOptional: true,
		Offline:         true,
	}
}

func setupStores(t *testing.T, path string) *Stores {
	t.Helper()
	s := NewStores(testStoreConfig(path))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// streetRows builds n well-formed street rows.
func streetRows(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf("id%d,2024-10,Kent Police,Kent Police,0.%d,51.2%d,On or near High Street,E01024000,Ashford 001A,Burglary,Under investigation,", i, i+1, i)
	}
	return rows
}

// writeSource writes a CSV for (period, force, category) below staging.
func writeSource(t *testing.T, staging, period, force string, c schema.Category, header string, rows []string) string {
	t.Helper()

	path := SourcePath(staging, period, force, c)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	body := header + "\n" + strings.Join(rows, "\n")
	if len(rows) > 0 {
		body += "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ensureTables creates the tables of categories for force.
func ensureTables(t *testing.T, stores *Stores, force string, categories ...schema.Category) {
	t.Helper()
	if _, err := NewMaterializer(stores).EnsureSchemas(context.Background(), []string{force}, categories); err != nil {
		t.Fatalf("EnsureSchemas() error = %v", err)
	}
}

// countRows counts rows of table using a fresh handle from stores.
func countRows(t *testing.T, stores *Stores, table string) int64 {
	t.Helper()
	st, release, err := stores.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	n, err := st.CountRows(context.Background(), table)
	if err != nil {
		t.Fatalf("CountRows(%s) error = %v", table, err)
	}
	return n
}

// countNullGeom counts rows of table whose geometry is NULL.
func countNullGeom(t *testing.T, stores *Stores, table string) int64 {
	t.Helper()
	st, release, err := stores.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	row, err := st.QueryRow(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) AS n FROM %s WHERE geom IS NULL", spatial.QuoteIdent(table)))
	if err != nil {
		t.Fatal(err)
	}
	n, err := row.Int64("n")
	if err != nil {
		t.Fatal(err)
	}
	return n
}
