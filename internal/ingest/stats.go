// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"time"

	"github.com/goccy/go-json"
)

// RunStats holds statistics about one pipeline run.
type RunStats struct {
	// RunID correlates log lines and ledger entries of this run.
	RunID string

	// AlreadyStaged reports that the archive was not extracted again.
	AlreadyStaged bool

	// TablesEnsured is the number of (force, category) tables created or
	// confirmed to exist.
	TablesEnsured int

	// FilesLoaded is the number of files committed.
	FilesLoaded int

	// FilesSkipped is the number of missing source files.
	FilesSkipped int

	// FilesAlreadyLoaded is the number of files the ledger skipped.
	FilesAlreadyLoaded int

	// RowsLoaded is the total number of rows inserted.
	RowsLoaded int64

	// StartTime is when the run started.
	StartTime time.Time

	// EndTime is when the run completed (zero if still running).
	EndTime time.Time

	// Files holds one result per (period, force, category) visited.
	Files []FileResult
}

// Duration returns the duration of the run.
func (s *RunStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// RowsPerSecond returns the load rate.
func (s *RunStats) RowsPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.RowsLoaded) / duration
}

func (s *RunStats) add(r *FileResult) {
	s.Files = append(s.Files, *r)
	switch r.Status {
	case StatusLoaded:
		s.FilesLoaded++
		s.RowsLoaded += r.Rows
	case StatusSkipped:
		s.FilesSkipped++
	case StatusAlreadyLoaded:
		s.FilesAlreadyLoaded++
	}
}

// RunSummary is the JSON form of RunStats logged at the end of a run.
type RunSummary struct {
	RunID              string    `json:"run_id"`
	Status             string    `json:"status"`
	AlreadyStaged      bool      `json:"already_staged"`
	TablesEnsured      int       `json:"tables_ensured"`
	FilesLoaded        int       `json:"files_loaded"`
	FilesSkipped       int       `json:"files_skipped"`
	FilesAlreadyLoaded int       `json:"files_already_loaded"`
	RowsLoaded         int64     `json:"rows_loaded"`
	RowsPerSec         float64   `json:"rows_per_second"`
	ElapsedSeconds     float64   `json:"elapsed_seconds"`
	StartTime          time.Time `json:"start_time"`
}

// ToSummary converts RunStats to a RunSummary.
func (s *RunStats) ToSummary() *RunSummary {
	summary := &RunSummary{
		RunID:              s.RunID,
		AlreadyStaged:      s.AlreadyStaged,
		TablesEnsured:      s.TablesEnsured,
		FilesLoaded:        s.FilesLoaded,
		FilesSkipped:       s.FilesSkipped,
		FilesAlreadyLoaded: s.FilesAlreadyLoaded,
		RowsLoaded:         s.RowsLoaded,
		RowsPerSec:         s.RowsPerSecond(),
		ElapsedSeconds:     s.Duration().Seconds(),
		StartTime:          s.StartTime,
	}
	if s.EndTime.IsZero() {
		summary.Status = "running"
	} else {
		summary.Status = "completed"
	}
	return summary
}

// SummaryJSON encodes ToSummary.
func (s *RunStats) SummaryJSON() ([]byte, error) {
	return json.Marshal(s.ToSummary())
}
