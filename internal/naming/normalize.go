// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

// Package naming converts free-form labels (CSV headers, force names) into
// canonical lowercase identifiers joined by single underscores.
//
//	naming.Normalize("StopAndSearch")        // "stop_and_search"
//	naming.Normalize("Falls within")         // "falls_within"
//	naming.Normalize("avon-and-somerset")    // "avon_and_somerset"
//	naming.Normalize("HTTPServer")           // "http_server"
//	naming.Normalize("X1Y2")                 // "x1_y2"
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator joins the words of a normalized identifier.
const Separator = "_"

// fold decomposes s and drops combining marks, so "Ceredigión" folds to "Ceredigion".
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Words splits s into its words. Boundaries are any non-alphanumeric rune, a
// lower-to-upper transition, the last capital of an acronym followed by a
// lowercase letter, and a digit followed by a letter. Digits directly after
// letters stay attached to that word.
func Words(s string) []string {
	rs := []rune(fold(s))
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && isBoundary(cur[len(cur)-1], r, next(rs, i)) {
			flush()
		}
		cur = append(cur, r)
	}
	flush()

	return words
}

func next(rs []rune, i int) rune {
	if i+1 < len(rs) {
		return rs[i+1]
	}
	return 0
}

func isBoundary(prev, cur, after rune) bool {
	switch {
	case unicode.IsDigit(prev) && unicode.IsLetter(cur):
		return true
	case unicode.IsUpper(cur) && unicode.IsLetter(prev) && !unicode.IsUpper(prev):
		return true
	case unicode.IsUpper(cur) && unicode.IsUpper(prev) && unicode.IsLower(after):
		return true
	default:
		return false
	}
}

// Normalize returns the canonical identifier form of s. Empty input yields
// empty output.
func Normalize(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}

	lower := cases.Lower(language.Und)
	for i, w := range words {
		// Lowercasing can reintroduce combining marks (e.g. U+0130).
		words[i] = fold(lower.String(w))
	}

	return strings.Join(words, Separator)
}

// NormalizeAll normalizes every label in labels, preserving order.
func NormalizeAll(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = Normalize(l)
	}
	return out
}
