// Policestats - Crime Statistics Ingestion and Spatial Storage
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/policestats

package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"golang.org/x/crypto/blake2b"
)

// ledgerPrefix namespaces file entries; the key suffix is the content digest.
const ledgerPrefix = "ledger:file:"

// LedgerEntry records one committed source file.
type LedgerEntry struct {
	RunID    string    `json:"run_id"`
	Period   string    `json:"period"`
	Force    string    `json:"force"`
	Category string    `json:"category"`
	Path     string    `json:"path"`
	Rows     int64     `json:"rows"`
	Digest   string    `json:"digest"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Ledger remembers which source files have been loaded.
type Ledger interface {
	// Record stores e under its digest, replacing any earlier entry.
	Record(ctx context.Context, e *LedgerEntry) error

	// Lookup returns the entry for digest, or nil if it was never recorded.
	Lookup(ctx context.Context, digest string) (*LedgerEntry, error)

	// Entries lists every entry ordered by load time.
	Entries(ctx context.Context) ([]LedgerEntry, error)

	Close() error
}

// BadgerLedger persists the ledger in BadgerDB so it survives across runs.
type BadgerLedger struct {
	db *badger.DB
}

// OpenBadgerLedger opens (or creates) a ledger at path.
func OpenBadgerLedger(path string) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger ledger: %w", err)
	}
	return &BadgerLedger{db: db}, nil
}

// NewBadgerLedger wraps an already open BadgerDB. Close closes db.
func NewBadgerLedger(db *badger.DB) *BadgerLedger {
	return &BadgerLedger{db: db}
}

// Record persists e.
func (l *BadgerLedger) Record(_ context.Context, e *LedgerEntry) error {
	if e.Digest == "" {
		return errors.New("ledger entry has no digest")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}

	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ledgerPrefix+e.Digest), data)
	})
}

// Lookup returns the entry stored for digest.
// Returns nil, nil if digest was never recorded.
func (l *BadgerLedger) Lookup(_ context.Context, digest string) (*LedgerEntry, error) {
	var entry *LedgerEntry

	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ledgerPrefix + digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			entry = &LedgerEntry{}
			return json.Unmarshal(val, entry)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("lookup ledger entry: %w", err)
	}
	return entry, nil
}

// Entries lists every recorded file.
func (l *BadgerLedger) Entries(_ context.Context) ([]LedgerEntry, error) {
	var entries []LedgerEntry

	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(ledgerPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e LedgerEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	sortEntries(entries)
	return entries, nil
}

// Close closes the underlying database.
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}

// MemoryLedger keeps the ledger for the lifetime of the process only.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]LedgerEntry
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]LedgerEntry)}
}

// Record stores a copy of e.
func (l *MemoryLedger) Record(_ context.Context, e *LedgerEntry) error {
	if e.Digest == "" {
		return errors.New("ledger entry has no digest")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[e.Digest] = *e
	return nil
}

// Lookup returns a copy of the entry for digest.
func (l *MemoryLedger) Lookup(_ context.Context, digest string) (*LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[digest]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Entries lists every entry.
func (l *MemoryLedger) Entries(_ context.Context) ([]LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

// Close is a no-op.
func (l *MemoryLedger) Close() error { return nil }

func sortEntries(entries []LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].LoadedAt.Equal(entries[j].LoadedAt) {
			return entries[i].LoadedAt.Before(entries[j].LoadedAt)
		}
		return entries[i].Path < entries[j].Path
	})
}

// FileDigest returns the hex BLAKE2b-256 digest of the file at path.
//
//nolint:gosec // G304: path is built from the staging directory
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read-only

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
