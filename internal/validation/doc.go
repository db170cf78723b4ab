// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps one thread-safe validator instance, registers the
// pipeline's custom tags, and translates field errors into short messages
// that name the offending config key.
//
// # Custom Tags
//
//   - period: a month label in YYYY-MM form ("2024-10")
//   - identifier: a label that normalizes to a non-empty identifier
//
// # Usage
//
//	type PipelineConfig struct {
//	    Forces  []string `validate:"min=1,dive,identifier"`
//	    Periods []string `validate:"min=1,dive,period"`
//	}
//
//	if verr := validation.ValidateStruct(&cfg); verr != nil {
//	    return fmt.Errorf("invalid configuration: %w", verr)
//	}
//
// ValidateStruct returns a concrete *StructValidationError. Callers that
// store the result in an error variable should check the pointer first, so a
// nil pointer never becomes a non-nil interface.
package validation
