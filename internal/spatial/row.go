// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package spatial

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Row is one result row with its column names bound. Values are whatever the
// driver produced: string, int64, int32, float64, bool, []byte, time.Time or nil.
type Row struct {
	columns []string
	values  []interface{}
	index   map[string]int
}

// NewRow builds a Row from parallel column and value slices. When a column
// name repeats, Get returns the first occurrence.
func NewRow(columns []string, values []interface{}) Row {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return Row{columns: columns, values: values, index: index}
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// Get returns the value of the named column.
func (r Row) Get(name string) (interface{}, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	return r.values[i], nil
}

// IsNull reports whether the named column holds NULL.
func (r Row) IsNull(name string) (bool, error) {
	v, err := r.Get(name)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

// String returns the named column formatted as text. NULL yields "".
func (r Row) String(name string) (string, error) {
	v, err := r.Get(name)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return fmt.Sprint(x), nil
	}
}

// Int64 returns the named column as an integer.
func (r Row) Int64(name string) (int64, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		return int64(x), nil //nolint:gosec // counts never approach 2^63
	case uint32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case nil:
		return 0, fmt.Errorf("column %s is NULL", name)
	default:
		return 0, fmt.Errorf("column %s has type %T, not an integer", name, v)
	}
}

// Bool returns the named column as a boolean.
func (r Row) Bool(name string) (bool, error) {
	v, err := r.Get(name)
	if err != nil {
		return false, err
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	case nil:
		return false, fmt.Errorf("column %s is NULL", name)
	default:
		return false, fmt.Errorf("column %s has type %T, not a boolean", name, v)
	}
}

// Map copies the row into a column-name keyed map.
func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.columns))
	for i := len(r.columns) - 1; i >= 0; i-- {
		m[r.columns[i]] = r.values[i]
	}
	return m
}

// collectRows drains rows into Row values and closes it.
func collectRows(rows *sql.Rows) ([]Row, error) {
	defer closeQuietly(rows)

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}
