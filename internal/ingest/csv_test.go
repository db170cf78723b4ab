// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestCSVSource_NormalizesHeader(t *testing.T) {
	src, err := newCSVSource(strings.NewReader("\ufeffCrime ID,Falls within,LSOA code\nabc,Kent,E01\n"))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"crime_id", "falls_within", "lsoa_code"}
	if !reflect.DeepEqual(src.Header(), want) {
		t.Errorf("Header() = %v, want %v", src.Header(), want)
	}

	row, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if row["crime_id"] != "abc" || row["lsoa_code"] != "E01" {
		t.Errorf("row = %v", row)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestCSVSource_RaggedRows(t *testing.T) {
	src, err := newCSVSource(strings.NewReader("A,B,C\n1,2\n1,2,3,4\n"))
	if err != nil {
		t.Fatal(err)
	}

	short, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := short["c"]; ok || short["b"] != "2" {
		t.Errorf("short row = %v, want c absent", short)
	}

	long, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(long) != 3 || long["c"] != "3" {
		t.Errorf("long row = %v, want extra field dropped", long)
	}
	if src.Line() != 3 {
		t.Errorf("Line() = %d, want 3", src.Line())
	}
}

func TestCSVSource_DuplicateHeaders(t *testing.T) {
	src, err := newCSVSource(strings.NewReader("Falls within,Falls Within,Month\nfirst,second,2024-10\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(src.Duplicates, []string{"falls_within"}) {
		t.Errorf("Duplicates = %v", src.Duplicates)
	}

	row, _ := src.Next()
	if row["falls_within"] != "first" {
		t.Errorf("falls_within = %q, want first occurrence", row["falls_within"])
	}
}

func TestCSVSource_Empty(t *testing.T) {
	src, err := newCSVSource(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestCSVSource_Malformed(t *testing.T) {
	src, err := newCSVSource(strings.NewReader("A,B\nok,ab\"c\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want parse error", err)
	}
}
