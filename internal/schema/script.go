// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package schema

import (
	"fmt"
	"strings"

	"github.com/tomtom215/policestats/internal/spatial"
)

// Mode selects how geometries are stored.
type Mode int

const (
	// Native stores GEOMETRY values built with ST_Point and indexes them
	// with an RTREE.
	Native Mode = iota
	// WKT stores "POINT (lon lat)" text. Used when the spatial extension is
	// unavailable; there is no spatial index.
	WKT
)

// ModeFor picks the mode a store supports.
func ModeFor(s *spatial.Store) Mode {
	if s.SpatialAvailable() {
		return Native
	}
	return WKT
}

func (m Mode) String() string {
	if m == WKT {
		return "wkt"
	}
	return "native"
}

// StatementKind classifies creation script statements.
type StatementKind int

const (
	// CreateTable creates the category table. Failure is fatal.
	CreateTable StatementKind = iota
	// CreateIndex builds the spatial index. Failure is tolerated.
	CreateIndex
	// RegisterGeometry records the geometry column in geometry_columns. Its
	// single parameter is whether the spatial index exists.
	RegisterGeometry
)

func (k StatementKind) String() string {
	switch k {
	case CreateTable:
		return "create_table"
	case CreateIndex:
		return "create_index"
	case RegisterGeometry:
		return "register_geometry"
	default:
		return "unknown"
	}
}

// Statement is one templated statement of a creation script.
type Statement struct {
	Kind StatementKind
	SQL  string
}

// Script is everything needed to create and fill one category table.
// Every string still contains ForcePlaceholder.
type Script struct {
	Category Category
	Mode     Mode
	Table    string
	Create   []Statement
	Insert   string

	// Params names the source fields bound to $1..$n of Insert, in order.
	Params []string
}

// ScriptFor returns the script of category c.
func ScriptFor(c Category, mode Mode) (Script, error) {
	d, err := Lookup(c)
	if err != nil {
		return Script{}, err
	}
	return d.Script(mode), nil
}

// Script builds the creation script and insert statement of d. Every
// creation statement is idempotent, so a script can be re-run against a
// store that already has the table.
func (d Definition) Script(mode Mode) Script {
	create := []Statement{{Kind: CreateTable, SQL: d.createTableSQL(mode)}}
	if mode == Native {
		create = append(create, Statement{Kind: CreateIndex, SQL: d.createIndexSQL()})
	}
	create = append(create, Statement{Kind: RegisterGeometry, SQL: d.registerSQL()})

	return Script{
		Category: d.Category,
		Mode:     mode,
		Table:    d.TableTemplate(),
		Create:   create,
		Insert:   d.insertSQL(mode),
		Params:   d.params(),
	}
}

// Render returns a copy of s with the placeholder replaced by forceID.
func (s Script) Render(forceID string) Script {
	out := s
	out.Table = Render(s.Table, forceID)
	out.Insert = Render(s.Insert, forceID)
	out.Create = make([]Statement, len(s.Create))
	for i, st := range s.Create {
		out.Create[i] = Statement{Kind: st.Kind, SQL: Render(st.SQL, forceID)}
	}
	return out
}

// Bind returns the Insert arguments for one source row keyed by normalized
// field name. Fields the row lacks bind NULL.
func (s Script) Bind(row map[string]string) []interface{} {
	args := make([]interface{}, len(s.Params))
	for i, p := range s.Params {
		if v, ok := row[p]; ok {
			args[i] = v
		}
	}
	return args
}

func (d Definition) params() []string {
	params := make([]string, 0, len(d.Columns)+2)
	for _, c := range d.Columns {
		params = append(params, c.Name)
	}
	return append(params, LongitudeField, LatitudeField)
}

func (d Definition) createTableSQL(mode Mode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.quotedTable())
	for _, c := range d.Columns {
		fmt.Fprintf(&b, "\t%s %s,\n", spatial.QuoteIdent(c.Name), c.sqlType())
	}
	geomType := "GEOMETRY"
	if mode == WKT {
		geomType = "VARCHAR"
	}
	fmt.Fprintf(&b, "\t%s %s\n)", spatial.QuoteIdent(GeometryColumn), geomType)
	return b.String()
}

func (d Definition) createIndexSQL() string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING RTREE (%s)",
		spatial.QuoteIdent("idx_"+d.TableTemplate()+"_"+GeometryColumn),
		d.quotedTable(),
		spatial.QuoteIdent(GeometryColumn))
}

func (d Definition) registerSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (f_table_name, f_geometry_column, geometry_type, coord_dimension, srid, spatial_index_enabled)
VALUES (%s, %s, 'POINT', 'XY', %d, $1)
ON CONFLICT (f_table_name, f_geometry_column) DO UPDATE SET spatial_index_enabled = excluded.spatial_index_enabled`,
		spatial.GeometryColumnsTable,
		spatial.QuoteLiteral(d.TableTemplate()),
		spatial.QuoteLiteral(GeometryColumn),
		spatial.SRIDWGS84)
}

// coordinateExpr parses parameter n as a double. Unparsable text and
// non-finite values (NaN, inf) are NULL.
func coordinateExpr(n int) string {
	v := fmt.Sprintf("TRY_CAST(CAST($%d AS VARCHAR) AS DOUBLE)", n)
	return fmt.Sprintf("CASE WHEN isfinite(%[1]s) THEN %[1]s END", v)
}

func (d Definition) insertSQL(mode Mode) string {
	cols := d.ColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = spatial.QuoteIdent(c)
	}

	values := make([]string, 0, len(cols))
	for i, c := range d.Columns {
		values = append(values, c.valueExpr(i+1))
	}

	lon := coordinateExpr(len(d.Columns) + 1)
	lat := coordinateExpr(len(d.Columns) + 2)
	if mode == WKT {
		// || yields NULL when either coordinate is NULL.
		values = append(values, fmt.Sprintf("'POINT (' || CAST(%s AS VARCHAR) || ' ' || CAST(%s AS VARCHAR) || ')'", lon, lat))
	} else {
		values = append(values, fmt.Sprintf("ST_Point(%s, %s)", lon, lat))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quotedTable(),
		strings.Join(quoted, ", "),
		strings.Join(values, ", "))
}
