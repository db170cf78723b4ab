// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomtom215/policestats/internal/logging"
	"github.com/tomtom215/policestats/internal/metrics"
)

var (
	// ErrUnsafePath is returned when an archive entry would be written
	// outside the target directory.
	ErrUnsafePath = errors.New("archive entry escapes target directory")

	// ErrNotArchive is returned when the source is not a readable zip file.
	ErrNotArchive = errors.New("not a zip archive")
)

// PartialSuffix is appended to the target directory while extraction runs.
const PartialSuffix = ".partial"

// maxEntrySize bounds a single extracted file (decompression bomb guard).
const maxEntrySize int64 = 4 << 30

// Result reports what Stage did.
type Result struct {
	Dir           string
	AlreadyStaged bool
	Files         int
	Bytes         int64
}

// Stage extracts archivePath into targetDir unless targetDir already exists.
func Stage(ctx context.Context, archivePath, targetDir string) (*Result, error) {
	log := logging.Ctx(ctx)
	res := &Result{Dir: targetDir}

	info, err := os.Stat(targetDir)
	switch {
	case err == nil && info.IsDir():
		res.AlreadyStaged = true
		metrics.RecordStaging(true, 0)
		log.Info().Str("dir", targetDir).Msg("Crime data already extracted, skipped")
		return res, nil
	case err == nil:
		return nil, fmt.Errorf("staging target %s exists and is not a directory", targetDir)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to stat staging target: %w", err)
	}

	partial := targetDir + PartialSuffix
	if err := os.RemoveAll(partial); err != nil {
		return nil, fmt.Errorf("failed to remove stale partial extraction: %w", err)
	}

	if err := extractAll(ctx, archivePath, partial, res); err != nil {
		if rmErr := os.RemoveAll(partial); rmErr != nil {
			log.Warn().Err(rmErr).Str("dir", partial).Msg("Failed to clean up partial extraction")
		}
		return nil, err
	}

	if err := os.Rename(partial, targetDir); err != nil {
		return nil, fmt.Errorf("failed to move extracted data into place: %w", err)
	}

	metrics.RecordStaging(false, res.Files)
	log.Info().
		Str("archive", archivePath).
		Int("files", res.Files).
		Int64("bytes", res.Bytes).
		Msgf("Crime data extracted to %s", targetDir)
	return res, nil
}

// extractAll writes every entry of archivePath below dir.
//
//nolint:gosec // G304: archivePath comes from operator configuration
func extractAll(ctx context.Context, archivePath, dir string, res *Result) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, zip.ErrInsecurePath) {
			_ = zr.Close()
			return fmt.Errorf("%w: %s", ErrUnsafePath, archivePath)
		}
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		return fmt.Errorf("%w: %s: %v", ErrNotArchive, archivePath, err)
	}
	defer zr.Close() //nolint:errcheck // read-only

	// Validate every name before writing anything.
	for _, f := range zr.File {
		if _, err := validateAndBuildDestPath(dir, f.Name); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if shouldSkipEntry(f) {
			continue
		}
		n, err := extractEntry(f, dir)
		if err != nil {
			return err
		}
		res.Files++
		res.Bytes += n
	}
	return nil
}

// shouldSkipEntry reports whether a zip entry produces no file.
func shouldSkipEntry(f *zip.File) bool {
	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return true
	}
	// Symlinks and devices are never part of a data extract.
	return !f.Mode().IsRegular()
}

func extractEntry(f *zip.File, dir string) (int64, error) {
	destPath, err := validateAndBuildDestPath(dir, f.Name)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close() //nolint:errcheck // read-only

	n, err := extractFile(src, destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return n, nil
}

//nolint:gosec // G304: destPath validated by validateAndBuildDestPath
func extractFile(src io.Reader, destPath string) (int64, error) {
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, io.LimitReader(src, maxEntrySize+1))
	if err == nil && n > maxEntrySize {
		err = fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// validateAndBuildDestPath joins name onto dir and rejects results outside dir.
func validateAndBuildDestPath(dir, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	destPath := filepath.Join(dir, name)
	if destPath == filepath.Clean(dir) {
		return destPath, nil
	}
	if !strings.HasPrefix(destPath, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return destPath, nil
}
