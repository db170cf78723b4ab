// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package spatial

import (
	"context"
	"fmt"

	"github.com/tomtom215/policestats/internal/logging"
)

// Spatial metadata table names.
const (
	SpatialRefSysTable   = "spatial_ref_sys"
	GeometryColumnsTable = "geometry_columns"
)

// Reference system identifiers seeded into every store.
const (
	SRIDUndefinedCartesian  = -1
	SRIDUndefinedGeographic = 0
	SRIDWGS84               = 4326
)

// RefSys is one spatial reference system entry.
type RefSys struct {
	SRID     int
	AuthName string
	AuthSRID int
	Name     string
	Proj4    string
}

// seedRefSys are the entries an initialized store always holds.
var seedRefSys = []RefSys{
	{SRID: SRIDUndefinedCartesian, AuthName: "NONE", AuthSRID: -1, Name: "Undefined - Cartesian", Proj4: ""},
	{SRID: SRIDUndefinedGeographic, AuthName: "NONE", AuthSRID: 0, Name: "Undefined - Geographic Long/Lat", Proj4: ""},
	{SRID: SRIDWGS84, AuthName: "epsg", AuthSRID: 4326, Name: "WGS 84", Proj4: "+proj=longlat +datum=WGS84 +no_defs"},
}

const createSpatialRefSys = `CREATE TABLE IF NOT EXISTS spatial_ref_sys (
	srid INTEGER PRIMARY KEY,
	auth_name VARCHAR NOT NULL,
	auth_srid INTEGER NOT NULL,
	ref_sys_name VARCHAR NOT NULL DEFAULT 'Unknown',
	proj4text VARCHAR NOT NULL
)`

const createGeometryColumns = `CREATE TABLE IF NOT EXISTS geometry_columns (
	f_table_name VARCHAR NOT NULL,
	f_geometry_column VARCHAR NOT NULL,
	geometry_type VARCHAR NOT NULL,
	coord_dimension VARCHAR NOT NULL,
	srid INTEGER NOT NULL,
	spatial_index_enabled BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (f_table_name, f_geometry_column)
)`

const insertRefSys = `INSERT INTO spatial_ref_sys (srid, auth_name, auth_srid, ref_sys_name, proj4text)
VALUES ($1, $2, $3, $4, $5) ON CONFLICT (srid) DO NOTHING`

// initSpatialMetadata creates and seeds the metadata tables when the store
// lacks them. A missing spatial_ref_sys means create and seed; present but
// empty means seed only; any other probe failure is returned.
func (s *Store) initSpatialMetadata(ctx context.Context) error {
	exists, err := s.TableExists(ctx, SpatialRefSysTable)
	if err != nil {
		return err
	}

	var count int64
	if exists {
		if count, err = s.CountRows(ctx, SpatialRefSysTable); err != nil {
			return err
		}
		if count > 0 {
			// Stores seeded elsewhere may lack geometry_columns.
			_, err = s.Exec(ctx, createGeometryColumns)
			return err
		}
	}

	logging.Info().
		Bool("table_existed", exists).
		Str("path", s.cfg.Path).
		Msg("Initializing spatial metadata")

	return s.InTx(ctx, func(tx *Tx) error {
		if !exists {
			if _, err := tx.Exec(ctx, createSpatialRefSys); err != nil {
				return fmt.Errorf("create %s: %w", SpatialRefSysTable, err)
			}
		}
		if _, err := tx.Exec(ctx, createGeometryColumns); err != nil {
			return fmt.Errorf("create %s: %w", GeometryColumnsTable, err)
		}
		for _, rs := range seedRefSys {
			if _, err := tx.Exec(ctx, insertRefSys, rs.SRID, rs.AuthName, rs.AuthSRID, rs.Name, rs.Proj4); err != nil {
				return fmt.Errorf("seed srid %d: %w", rs.SRID, err)
			}
		}
		return nil
	})
}

// IsSpatial reports whether the store carries spatial reference metadata:
// the table exists and holds at least one row.
func (s *Store) IsSpatial(ctx context.Context) (bool, error) {
	exists, err := s.TableExists(ctx, SpatialRefSysTable)
	if err != nil || !exists {
		return false, err
	}
	n, err := s.CountRows(ctx, SpatialRefSysTable)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RefSystem looks up one reference system by SRID.
func (s *Store) RefSystem(ctx context.Context, srid int) ([]Row, error) {
	return s.Query(ctx,
		"SELECT srid, auth_name, auth_srid, ref_sys_name, proj4text FROM spatial_ref_sys WHERE srid = $1",
		srid)
}

// GeometryColumn is one registered geometry column.
type GeometryColumn struct {
	Table        string
	Column       string
	GeometryType string
	SRID         int
	Indexed      bool
}

// GeometryColumns lists the registered geometry columns ordered by table.
func (s *Store) GeometryColumns(ctx context.Context) ([]GeometryColumn, error) {
	rows, err := s.Query(ctx, `SELECT f_table_name, f_geometry_column, geometry_type, srid, spatial_index_enabled
		FROM geometry_columns ORDER BY f_table_name, f_geometry_column`)
	if err != nil {
		return nil, fmt.Errorf("list geometry columns: %w", err)
	}

	out := make([]GeometryColumn, 0, len(rows))
	for _, r := range rows {
		var gc GeometryColumn
		if gc.Table, err = r.String("f_table_name"); err != nil {
			return nil, err
		}
		if gc.Column, err = r.String("f_geometry_column"); err != nil {
			return nil, err
		}
		if gc.GeometryType, err = r.String("geometry_type"); err != nil {
			return nil, err
		}
		srid, err := r.Int64("srid")
		if err != nil {
			return nil, err
		}
		gc.SRID = int(srid)
		if gc.Indexed, err = r.Bool("spatial_index_enabled"); err != nil {
			return nil, err
		}
		out = append(out, gc)
	}
	return out, nil
}
