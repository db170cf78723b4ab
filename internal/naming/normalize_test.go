// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package naming

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"StopAndSearch", "stop_and_search"},
		{"X1Y2", "x1_y2"},
		{"metropolitan", "metropolitan"},
		{"avon-and-somerset", "avon_and_somerset"},
		{"Crime ID", "crime_id"},
		{"Falls within", "falls_within"},
		{"LSOA code", "lsoa_code"},
		{"Last outcome category", "last_outcome_category"},
		{"Part of a policing operation", "part_of_a_policing_operation"},
		{"Self-defined ethnicity", "self_defined_ethnicity"},
		{"Outcome linked to object of search", "outcome_linked_to_object_of_search"},
		{"HTTPServer", "http_server"},
		{"getHTTPResponseCode", "get_http_response_code"},
		{"ABc", "a_bc"},
		{"2024-10", "2024_10"},
		{"version2Beta", "version2_beta"},
		{"  leading__and--trailing  ", "leading_and_trailing"},
		{"Ceredigión", "ceredigion"},
		{"already_normal_form", "already_normal_form"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"StopAndSearch",
		"X1Y2",
		"HTTPServer2Go",
		"Reported by",
		"Type",
		"Officer-defined ethnicity",
		"ÉCOLE Publique",
		"İstanbul",
		"a1b2c3",
		"99Problems",
		"snake_case_Mixed-Up Label",
		"ﬁle½name",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestWords(t *testing.T) {
	got := Words("getHTTPResponse2Code")
	want := []string{"get", "HTTP", "Response2", "Code"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %v, want %v", got, want)
	}

	if words := Words(""); len(words) != 0 {
		t.Errorf("Words(\"\") = %v, want empty", words)
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"City Of London", "north-wales"})
	want := []string{"city_of_london", "north_wales"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeAll() = %v, want %v", got, want)
	}
}
