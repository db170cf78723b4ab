// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

/*
extensions.go - DuckDB Extension Loading

Each extension follows a fallback pattern:
 1. LOAD <extension> (already installed locally)
 2. INSTALL <extension>, then FORCE INSTALL <extension>, both retried on
    transient network errors and guarded by a process-wide circuit breaker
 3. LOAD <extension>
 4. Run the verify query

Offline stores stop after step 1. Once the breaker opens, later stores skip
step 2 until its timeout elapses.
*/

//nolint:staticcheck // File documentation, not package doc
package spatial

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/policestats/internal/logging"
	"github.com/tomtom215/policestats/internal/metrics"
)

// duckdbVersion is the DuckDB version used for extension paths.
// Must match the duckdb-go-bindings version in go.mod.
const duckdbVersion = "v1.4.3"

// extensionDef describes how to load and verify one DuckDB extension
type extensionDef struct {
	// Name is the extension name (e.g., "spatial")
	Name string
	// VerifyQuery is a SQL statement that fails unless the extension works
	VerifyQuery string
	// WarningMessage is logged when the extension is unavailable in optional mode
	WarningMessage string
}

// spatialExtension is the only extension the store needs.
var spatialExtension = extensionDef{
	Name:           "spatial",
	VerifyQuery:    "SELECT ST_AsText(ST_Point(0, 0))",
	WarningMessage: "Spatial extension unavailable, geometries will be stored as WKT text without a spatial index",
}

// retryConfig controls retry behavior for extension downloads
type retryConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	BackoffMult float64
}

// defaultRetryConfig provides defaults for extension download retries
var defaultRetryConfig = retryConfig{
	MaxRetries:  3,
	BaseDelay:   2 * time.Second,
	MaxDelay:    30 * time.Second,
	BackoffMult: 2.0,
}

const installBreakerName = "duckdb-extension-install"

// installBreaker is shared by every store opened in this process.
var installBreaker = newInstallBreaker(2, 5*time.Minute)

// newInstallBreaker opens after consecutiveFailures failed install rounds and
// stays open for timeout.
func newInstallBreaker(consecutiveFailures uint32, timeout time.Duration) *gobreaker.CircuitBreaker[struct{}] {
	metrics.ExtensionBreakerState.WithLabelValues(installBreakerName).Set(0)

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        installBreakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.ExtensionBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// stateToFloat converts breaker state to a gauge value (0 closed, 1 half-open, 2 open)
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// execFunc runs one statement against the store.
type execFunc func(ctx context.Context, query string) error

// extensionLoader loads extensions through exec.
type extensionLoader struct {
	exec    execFunc
	breaker *gobreaker.CircuitBreaker[struct{}]
	retry   retryConfig
	offline bool
}

// load makes ext usable on the store or returns why it could not.
func (l *extensionLoader) load(ctx context.Context, ext *extensionDef) error {
	loadStmt := fmt.Sprintf("LOAD %s;", ext.Name)

	// Step 1: LOAD a locally installed copy
	firstLoadErr := l.exec(ctx, loadStmt)
	if firstLoadErr == nil {
		return l.verify(ctx, ext)
	}
	logging.Debug().Str("extension", ext.Name).Err(firstLoadErr).Msg("Extension not loadable, installing")

	if l.offline {
		return fmt.Errorf("load %s (offline, install skipped): %w", ext.Name, firstLoadErr)
	}

	// Step 2: INSTALL, falling back to FORCE INSTALL
	_, installErr := l.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, l.install(ctx, ext)
	})
	if installErr != nil {
		result := "failure"
		if errors.Is(installErr, gobreaker.ErrOpenState) || errors.Is(installErr, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		metrics.ExtensionInstallAttempts.WithLabelValues(ext.Name, result).Inc()
		return fmt.Errorf("install %s: %w (load error: %w)", ext.Name, installErr, firstLoadErr)
	}
	metrics.ExtensionInstallAttempts.WithLabelValues(ext.Name, "success").Inc()

	// Step 3: LOAD the fresh install
	if err := l.exec(ctx, loadStmt); err != nil {
		return fmt.Errorf("load %s after install: %w", ext.Name, err)
	}

	// Step 4: verify
	return l.verify(ctx, ext)
}

func (l *extensionLoader) install(ctx context.Context, ext *extensionDef) error {
	installErr := l.execWithRetry(ctx, fmt.Sprintf("INSTALL %s;", ext.Name))
	if installErr == nil {
		return nil
	}

	if forceErr := l.execWithRetry(ctx, fmt.Sprintf("FORCE INSTALL %s;", ext.Name)); forceErr != nil {
		return fmt.Errorf("install error: %w, force install error: %w", installErr, forceErr)
	}
	return nil
}

func (l *extensionLoader) verify(ctx context.Context, ext *extensionDef) error {
	if ext.VerifyQuery == "" {
		return nil
	}
	if err := l.exec(ctx, ext.VerifyQuery); err != nil {
		return fmt.Errorf("%s extension loaded but functions unavailable: %w", ext.Name, err)
	}
	return nil
}

// execWithRetry executes a statement with retry logic and exponential backoff.
// Only transient network failures are retried.
func (l *extensionLoader) execWithRetry(ctx context.Context, query string) error {
	var lastErr error
	delay := l.retry.BaseDelay

	for attempt := 0; attempt <= l.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("query", query).
				Msg("Retrying extension operation")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * l.retry.BackoffMult)
			if delay > l.retry.MaxDelay {
				delay = l.retry.MaxDelay
			}
		}

		err := l.exec(ctx, query)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		logging.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", l.retry.MaxRetries+1).
			Msg("Extension operation failed, will retry")
	}

	return fmt.Errorf("extension operation failed after %d attempts: %w", l.retry.MaxRetries+1, lastErr)
}

// isRetryable reports whether err looks like a transient network failure.
func isRetryable(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "temporary failure")
}

// isExtensionInstalledLocally checks for the extension file in the local
// DuckDB extension directory.
func isExtensionInstalledLocally(extensionName string) bool {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false
	}

	// ~/.duckdb/extensions/{version}/{platform}/{name}.duckdb_extension
	platform := runtime.GOOS + "_" + runtime.GOARCH
	extPath := filepath.Join(homeDir, ".duckdb", "extensions", duckdbVersion, platform, extensionName+".duckdb_extension")

	_, err = os.Stat(extPath)
	return err == nil
}
