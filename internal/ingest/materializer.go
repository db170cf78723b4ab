// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/policestats/internal/logging"
	"github.com/tomtom215/policestats/internal/metrics"
	"github.com/tomtom215/policestats/internal/naming"
	"github.com/tomtom215/policestats/internal/schema"
	"github.com/tomtom215/policestats/internal/spatial"
)

// Materializer creates the per-force category tables.
type Materializer struct {
	stores *Stores
}

// NewMaterializer returns a materializer drawing store handles from stores.
func NewMaterializer(stores *Stores) *Materializer {
	return &Materializer{stores: stores}
}

// EnsureSchemas runs the creation script of every category for every force.
// Each statement commits on its own. A table or registration failure aborts
// the pass; a spatial index failure is logged and the table is registered as
// unindexed. It returns the number of tables ensured.
func (m *Materializer) EnsureSchemas(ctx context.Context, forces []string, categories []schema.Category) (tables int, err error) {
	st, release, err := m.stores.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("open store for schema creation: %w", err)
	}
	defer func() {
		if cerr := release(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	mode := schema.ModeFor(st)
	log := logging.Ctx(ctx)
	if mode == schema.WKT {
		log.Warn().Msg("Spatial extension unavailable, storing geometries as WKT text without spatial index")
	}

	for _, force := range forces {
		forceID := naming.Normalize(force)
		for _, c := range categories {
			script, err := schema.ScriptFor(c, mode)
			if err != nil {
				return tables, err
			}
			if err := applyScript(ctx, st, script.Render(forceID)); err != nil {
				return tables, err
			}
			tables++
		}
	}

	log.Info().Int("tables", tables).Str("mode", mode.String()).Msg("Schemas ensured")
	return tables, nil
}

// applyScript executes one rendered creation script.
func applyScript(ctx context.Context, st *spatial.Store, script schema.Script) error {
	category := string(script.Category)
	indexed := false

	for _, stmt := range script.Create {
		var args []interface{}
		if stmt.Kind == schema.RegisterGeometry {
			args = []interface{}{indexed}
		}

		start := time.Now()
		_, err := st.Exec(ctx, stmt.SQL, args...)
		metrics.RecordDBQuery(stmt.Kind.String(), script.Table, time.Since(start), err)
		metrics.SchemaStatements.WithLabelValues(category).Inc()

		switch {
		case err == nil && stmt.Kind == schema.CreateIndex:
			indexed = true
		case err == nil:
		case stmt.Kind == schema.CreateIndex:
			metrics.SpatialIndexFailures.WithLabelValues(category).Inc()
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("table", script.Table).
				Msg("Spatial index creation failed, continuing without index")
		default:
			return fmt.Errorf("%s %s: %w", stmt.Kind, script.Table, err)
		}
	}

	logging.Ctx(ctx).Debug().
		Str("table", script.Table).
		Bool("spatial_index", indexed).
		Msg("Table ensured")
	return nil
}
