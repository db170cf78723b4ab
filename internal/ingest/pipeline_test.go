// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/policestats/internal/config"
	"github.com/tomtom215/policestats/internal/logging"
	"github.com/tomtom215/policestats/internal/metrics"
	"github.com/tomtom215/policestats/internal/spatial"
)

// writeArchive zips name/content pairs into dir/extract.zip.
func writeArchive(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, "extract.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func pipelineConfig(t *testing.T, storePath string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	street := func(n int) string {
		return streetHeader + "\n" + strings.Join(streetRows(n), "\n") + "\n"
	}

	cfg := config.Default()
	cfg.Database.Path = storePath
	cfg.Source.ArchivePath = writeArchive(t, dir, map[string]string{
		"2024-10/2024-10-kent-street.csv": street(3),
		"2024-09/2024-09-kent-street.csv": street(2),
	})
	cfg.Source.StagingDir = filepath.Join(dir, "crime-data")
	cfg.Pipeline.Forces = []string{"kent"}
	cfg.Pipeline.Periods = []string{"2024-10", "2024-09"}
	cfg.Pipeline.Categories = []string{"outcomes", "street"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config, ledger Ledger) *Pipeline {
	t.Helper()
	p, err := newPipeline(cfg, testStoreConfig(cfg.Database.Path), ledger)
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPipeline_Run(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "crime.duckdb")
	cfg := pipelineConfig(t, storePath)
	p := newTestPipeline(t, cfg, nil)

	skippedBefore := testutil.ToFloat64(metrics.FilesProcessed.WithLabelValues("skipped"))

	ctx := logging.ContextWithRunID(context.Background(), "run-under-test")
	stats, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.RunID != "run-under-test" {
		t.Errorf("RunID = %q", stats.RunID)
	}
	if stats.AlreadyStaged {
		t.Error("first run should extract the archive")
	}
	if stats.TablesEnsured != 2 {
		t.Errorf("TablesEnsured = %d, want 2", stats.TablesEnsured)
	}
	if stats.FilesLoaded != 2 || stats.FilesSkipped != 2 {
		t.Errorf("FilesLoaded = %d, FilesSkipped = %d; want 2 and 2", stats.FilesLoaded, stats.FilesSkipped)
	}
	if stats.RowsLoaded != 5 {
		t.Errorf("RowsLoaded = %d, want 5", stats.RowsLoaded)
	}
	if len(stats.Files) != 4 || stats.Files[0].Period != "2024-10" {
		t.Errorf("Files = %+v; want periods outermost", stats.Files)
	}
	if stats.EndTime.IsZero() || stats.Duration() <= 0 {
		t.Error("run timing not recorded")
	}
	if got := testutil.ToFloat64(metrics.FilesProcessed.WithLabelValues("skipped")) - skippedBefore; got != 2 {
		t.Errorf("skipped files metric delta = %v, want 2", got)
	}

	// The store file is durable and usable after the run.
	st, err := spatial.Open(context.Background(), testStoreConfig(storePath))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	n, err := st.CountRows(context.Background(), "kent_street")
	if err != nil || n != 5 {
		t.Errorf("kent_street rows = %d, %v; want 5", n, err)
	}
	if spatialOK, err := st.IsSpatial(context.Background()); err != nil || !spatialOK {
		t.Errorf("IsSpatial() = %v, %v", spatialOK, err)
	}
}

func TestPipeline_RerunIsAdditive(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "crime.duckdb")
	cfg := pipelineConfig(t, storePath)

	first := newTestPipeline(t, cfg, nil)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	second := newTestPipeline(t, cfg, nil)
	stats, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !stats.AlreadyStaged {
		t.Error("second run should find the archive already staged")
	}
	if stats.RowsLoaded != 5 {
		t.Errorf("second run RowsLoaded = %d, want 5", stats.RowsLoaded)
	}

	stores := setupStores(t, storePath)
	if n := countRows(t, stores, "kent_street"); n != 10 {
		t.Errorf("kent_street rows = %d, want 10 after two runs", n)
	}
}

func TestPipeline_SkipLoadedWithLedger(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "crime.duckdb")
	cfg := pipelineConfig(t, storePath)
	cfg.Ledger.Enabled = true
	cfg.Ledger.SkipLoaded = true
	ledger := NewMemoryLedger()

	if _, err := newTestPipeline(t, cfg, ledger).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Close on the first pipeline closed the ledger; MemoryLedger survives it.
	stats, err := newTestPipeline(t, cfg, ledger).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesAlreadyLoaded != 2 || stats.RowsLoaded != 0 {
		t.Errorf("second run = %+v, want 2 files already loaded and no rows", stats.ToSummary())
	}

	entries, _ := ledger.Entries(context.Background())
	if len(entries) != 2 {
		t.Errorf("ledger holds %d entries, want 2", len(entries))
	}
}

func TestPipeline_Ephemeral(t *testing.T) {
	cfg := pipelineConfig(t, "")
	p := newTestPipeline(t, cfg, nil)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.RowsLoaded != 5 {
		t.Errorf("RowsLoaded = %d, want 5", stats.RowsLoaded)
	}
	if stats.RunID == "" {
		t.Error("run id should be generated when the context has none")
	}

	// The shared in-memory store still holds the rows until Close.
	if n := countRows(t, p.stores, "kent_street"); n != 5 {
		t.Errorf("kent_street rows = %d, want 5", n)
	}
}

func TestPipeline_StageFailureAborts(t *testing.T) {
	cfg := pipelineConfig(t, "")
	cfg.Source.ArchivePath = filepath.Join(t.TempDir(), "missing.zip")

	stats, err := newTestPipeline(t, cfg, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected staging error")
	}
	if stats.TablesEnsured != 0 || stats.FilesLoaded != 0 {
		t.Errorf("work done after staging failure: %+v", stats.ToSummary())
	}
}

func TestNewPipeline_UnknownCategory(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Categories = []string{"burglary"}
	if _, err := newPipeline(cfg, testStoreConfig(""), nil); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunStats_Summary(t *testing.T) {
	s := &RunStats{RunID: "r"}
	s.add(&FileResult{Status: StatusLoaded, Rows: 7})
	s.add(&FileResult{Status: StatusSkipped})
	s.add(&FileResult{Status: StatusAlreadyLoaded, Rows: 3})

	if s.FilesLoaded != 1 || s.FilesSkipped != 1 || s.FilesAlreadyLoaded != 1 || s.RowsLoaded != 7 {
		t.Errorf("stats = %+v", s)
	}

	data, err := s.SummaryJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["run_id"] != "r" || decoded["rows_loaded"] != float64(7) || decoded["status"] != "running" {
		t.Errorf("summary = %s", data)
	}
}
