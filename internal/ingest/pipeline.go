// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/policestats/internal/archive"
	"github.com/tomtom215/policestats/internal/config"
	"github.com/tomtom215/policestats/internal/logging"
	"github.com/tomtom215/policestats/internal/metrics"
	"github.com/tomtom215/policestats/internal/schema"
	"github.com/tomtom215/policestats/internal/spatial"
)

// Pipeline runs stage, materialize and load over the configured periods,
// forces and categories.
type Pipeline struct {
	cfg          *config.Config
	categories   []schema.Category
	stores       *Stores
	ledger       Ledger
	materializer *Materializer
	loader       *Loader
}

// New builds a pipeline from cfg. When the ledger is enabled its Badger
// directory is opened here; Close releases it.
func New(cfg *config.Config) (*Pipeline, error) {
	return newPipeline(cfg, StoreConfig(cfg.Database), nil)
}

// newPipeline lets tests supply the store config and ledger.
func newPipeline(cfg *config.Config, storeCfg spatial.Config, ledger Ledger) (*Pipeline, error) {
	categories := make([]schema.Category, 0, len(cfg.Pipeline.Categories))
	for _, name := range cfg.Pipeline.Categories {
		c, err := schema.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	if ledger == nil && cfg.Ledger.Enabled {
		bl, err := OpenBadgerLedger(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
		ledger = bl
	}

	stores := NewStores(storeCfg)
	return &Pipeline{
		cfg:          cfg,
		categories:   categories,
		stores:       stores,
		ledger:       ledger,
		materializer: NewMaterializer(stores),
		loader: NewLoader(stores, LoaderConfig{
			StagingDir: cfg.Source.StagingDir,
			Ledger:     ledger,
			SkipLoaded: cfg.Ledger.SkipLoaded,
		}),
	}, nil
}

// Run executes one full ingestion. The first error aborts the run; stats
// describe the work completed up to that point.
func (p *Pipeline) Run(ctx context.Context) (stats *RunStats, err error) {
	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.GenerateRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}
	log := logging.Ctx(ctx)

	stats = &RunStats{RunID: runID, StartTime: time.Now()}
	defer func() {
		stats.EndTime = time.Now()
		metrics.RecordRun(stats.Duration(), stats.EndTime, err)
	}()

	log.Info().
		Strs("forces", p.cfg.Pipeline.Forces).
		Strs("periods", p.cfg.Pipeline.Periods).
		Int("categories", len(p.categories)).
		Msg("Starting ingestion run")

	staged, err := archive.Stage(ctx, p.cfg.Source.ArchivePath, p.cfg.Source.StagingDir)
	if err != nil {
		return stats, fmt.Errorf("stage archive: %w", err)
	}
	stats.AlreadyStaged = staged.AlreadyStaged

	stats.TablesEnsured, err = p.materializer.EnsureSchemas(ctx, p.cfg.Pipeline.Forces, p.categories)
	if err != nil {
		return stats, fmt.Errorf("ensure schemas: %w", err)
	}

	for _, period := range p.cfg.Pipeline.Periods {
		for _, force := range p.cfg.Pipeline.Forces {
			for _, c := range p.categories {
				if err := ctx.Err(); err != nil {
					return stats, err
				}
				res, err := p.loader.LoadPeriod(ctx, period, force, c)
				if err != nil {
					return stats, err
				}
				stats.add(res)
			}
		}
	}

	log.Info().
		Int("files_loaded", stats.FilesLoaded).
		Int("files_skipped", stats.FilesSkipped).
		Int64("rows_loaded", stats.RowsLoaded).
		Msg("Ingestion run completed")
	return stats, nil
}

// Close releases the shared store and the ledger.
func (p *Pipeline) Close() error {
	var errs []error
	if err := p.stores.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if p.ledger != nil {
		if err := p.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	return errors.Join(errs...)
}
