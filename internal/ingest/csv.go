// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tomtom215/policestats/internal/naming"
)

const utf8BOM = "\ufeff"

// csvSource streams source rows keyed by normalized header.
type csvSource struct {
	r      *csv.Reader
	header []string
	row    map[string]string
	line   int

	// Duplicates lists normalized headers seen more than once; the first
	// occurrence wins.
	Duplicates []string
}

// newCSVSource reads the header line of r. An empty input yields a source
// with no header whose Next returns io.EOF.
func newCSVSource(r io.Reader) (*csvSource, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 64*1024))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	src := &csvSource{r: cr}

	raw, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return src, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	src.line = 1

	seen := make(map[string]bool, len(raw))
	src.header = make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := naming.Normalize(h)
		if name != "" && seen[name] {
			src.Duplicates = append(src.Duplicates, name)
			name = "" // ignored column
		}
		seen[name] = true
		src.header[i] = name
	}
	src.row = make(map[string]string, len(raw))
	return src, nil
}

// Header returns the normalized header. Ignored columns are "".
func (s *csvSource) Header() []string {
	return s.header
}

// Next returns the next row. The map is reused by the following call.
// Fields beyond the header are dropped; missing trailing fields are absent.
func (s *csvSource) Next() (map[string]string, error) {
	if s.header == nil {
		return nil, io.EOF
	}

	rec, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		// csv.ParseError already carries the line number.
		return nil, fmt.Errorf("record %d: %w", s.line, err)
	}
	s.line++

	clear(s.row)
	for i, v := range rec {
		if i >= len(s.header) {
			break
		}
		if name := s.header[i]; name != "" {
			s.row[name] = v
		}
	}
	return s.row, nil
}

// Line is the number of records read, header included.
func (s *csvSource) Line() int {
	return s.line
}
