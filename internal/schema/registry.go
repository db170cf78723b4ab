// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/policestats/internal/naming"
	"github.com/tomtom215/policestats/internal/spatial"
)

// ErrUnknownCategory is returned for a category the registry does not define.
var ErrUnknownCategory = errors.New("unknown category")

// ForcePlaceholder marks where the force identifier goes in table names.
const ForcePlaceholder = "{force}"

// Names of the geometry column and the source fields it is built from.
const (
	GeometryColumn = "geom"
	LongitudeField = "longitude"
	LatitudeField  = "latitude"
)

// Category is one kind of published record.
type Category string

// Known categories, named as they appear in source file names.
const (
	Outcomes      Category = "outcomes"
	StopAndSearch Category = "stop-and-search"
	Street        Category = "street"
)

// ColumnType is the stored type of an attribute column.
type ColumnType int

const (
	// Text columns store the raw CSV value.
	Text ColumnType = iota
	// Bool columns accept true/false in any case; anything else stores NULL.
	Bool
)

// Column is one attribute column. Name is the normalized CSV header.
type Column struct {
	Name string
	Type ColumnType
}

// Definition is the fixed schema of one category.
type Definition struct {
	Category    Category
	TableSuffix string
	Columns     []Column
}

func text(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: Text}
	}
	return cols
}

var definitions = map[Category]Definition{
	Outcomes: {
		Category:    Outcomes,
		TableSuffix: "outcomes",
		Columns: text(
			"crime_id", "month", "reported_by", "falls_within",
			"location", "lsoa_code", "lsoa_name", "outcome_type",
		),
	},
	StopAndSearch: {
		Category:    StopAndSearch,
		TableSuffix: "stop_search",
		Columns: []Column{
			{Name: "type", Type: Text},
			{Name: "date", Type: Text},
			{Name: "part_of_a_policing_operation", Type: Bool},
			{Name: "policing_operation", Type: Text},
			{Name: "gender", Type: Text},
			{Name: "age_range", Type: Text},
			{Name: "self_defined_ethnicity", Type: Text},
			{Name: "officer_defined_ethnicity", Type: Text},
			{Name: "legislation", Type: Text},
			{Name: "object_of_search", Type: Text},
			{Name: "outcome", Type: Text},
			{Name: "outcome_linked_to_object_of_search", Type: Bool},
		},
	},
	Street: {
		Category:    Street,
		TableSuffix: "street",
		Columns: text(
			"crime_id", "month", "reported_by", "falls_within",
			"location", "lsoa_code", "lsoa_name", "crime_type",
			"last_outcome_category", "context",
		),
	},
}

// Categories returns every known category in file-name order.
func Categories() []Category {
	out := make([]Category, 0, len(definitions))
	for c := range definitions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if _, ok := definitions[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Lookup returns the definition of c.
func Lookup(c Category) (Definition, error) {
	d, ok := definitions[c]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}
	// Callers must not be able to mutate the registry.
	d.Columns = append([]Column(nil), d.Columns...)
	return d, nil
}

// TableTemplate is the table name with the force placeholder still in it.
func (d Definition) TableTemplate() string {
	return ForcePlaceholder + "_" + d.TableSuffix
}

// Table returns the table name for force. The force label is normalized,
// so "avon-and-somerset" and "avon_and_somerset" name the same table.
func (d Definition) Table(force string) string {
	return Render(d.TableTemplate(), naming.Normalize(force))
}

// Render substitutes forceID for the placeholder. forceID must already be
// normalized.
func Render(template, forceID string) string {
	return strings.ReplaceAll(template, ForcePlaceholder, forceID)
}

// ColumnNames returns the attribute column names followed by the geometry column.
func (d Definition) ColumnNames() []string {
	names := make([]string, 0, len(d.Columns)+1)
	for _, c := range d.Columns {
		names = append(names, c.Name)
	}
	return append(names, GeometryColumn)
}

// sqlType maps a column type to its DuckDB type.
func (c Column) sqlType() string {
	if c.Type == Bool {
		return "BOOLEAN"
	}
	return "VARCHAR"
}

// valueExpr is the insert expression for the parameter at position n.
func (c Column) valueExpr(n int) string {
	if c.Type == Bool {
		return fmt.Sprintf("TRY_CAST(lower(CAST($%d AS VARCHAR)) AS BOOLEAN)", n)
	}
	return fmt.Sprintf("CAST($%d AS VARCHAR)", n)
}

// quotedTable is the quoted table template, e.g. "{force}_street".
func (d Definition) quotedTable() string {
	return spatial.QuoteIdent(d.TableTemplate())
}
