// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package uploads

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/models"
)

// Key prefixes. Upload entries are keyed by id; the hash index maps an
// owner's content hash to the completed upload that carried it.
const (
	prefixUpload = "upload:"
	prefixHash   = "hash:"
)

// closeTimeout bounds how long Close waits for BadgerDB to flush.
const closeTimeout = 30 * time.Second

var (
	// ErrLedgerClosed is returned by operations on a closed ledger.
	ErrLedgerClosed = errors.New("upload ledger is closed")

	// ErrUploadNotFound is returned when no ledger entry exists for an id
	// or content hash.
	ErrUploadNotFound = errors.New("upload not found")
)

// Ledger is the durable upload history: one BadgerDB entry per upload,
// updated on every lifecycle transition, plus a content-hash index that
// lets a repeated upload of identical content replay its stored summary
// instead of being ingested again.
//
// Entries carry the configured retention as a native TTL, measured from the
// last transition. Badger handles expiry; the GC service reclaims value-log
// space behind it.
type Ledger struct {
	db        *badger.DB
	retention time.Duration

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the ledger database at the configured path.
func Open(cfg config.LedgerConfig) (*Ledger, error) {
	if cfg.Path == "" {
		return nil, errors.New("ledger path is empty")
	}

	opts := badger.DefaultOptions(cfg.Path)
	// Every write is one small upload transition; durability beats
	// throughput here.
	opts.SyncWrites = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l := &Ledger{
		db:        db,
		retention: cfg.Retention(),
	}

	logging.Info().
		Str("path", cfg.Path).
		Dur("retention", l.retention).
		Msg("Upload ledger opened")
	return l, nil
}

// guard returns ErrLedgerClosed once Close has run.
func (l *Ledger) guard() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLedgerClosed
	}
	return nil
}

// Close flushes and closes the database. Safe to call twice.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- l.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close ledger: %w", err)
		}
		logging.Info().Msg("Upload ledger closed")
		return nil
	case <-time.After(closeTimeout):
		return fmt.Errorf("ledger close timed out after %v", closeTimeout)
	}
}

// Put writes an upload entry, replacing any previous version. Completed
// uploads with a content hash also get a hash-index entry so later
// identical uploads can be detected.
func (l *Ledger) Put(_ context.Context, u *models.Upload) error {
	if err := l.guard(); err != nil {
		return err
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal upload: %w", err)
	}

	return l.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(uploadKey(u.ID), data)
		if l.retention > 0 {
			entry = entry.WithTTL(l.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set upload entry: %w", err)
		}

		if u.State == models.UploadStateCompleted && u.ContentHash != "" {
			idx := badger.NewEntry(hashKey(u.OwnerKey, u.ContentHash), []byte(u.ID.String()))
			if l.retention > 0 {
				idx = idx.WithTTL(l.retention)
			}
			if err := txn.SetEntry(idx); err != nil {
				return fmt.Errorf("set hash index: %w", err)
			}
		}
		return nil
	})
}

// Get returns the entry for one upload id.
func (l *Ledger) Get(_ context.Context, id uuid.UUID) (*models.Upload, error) {
	if err := l.guard(); err != nil {
		return nil, err
	}

	var u models.Upload
	err := l.db.View(func(txn *badger.Txn) error {
		return readUpload(txn, uploadKey(id), &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies mutate to the stored entry inside one transaction. The
// mutated entry is re-persisted and returned. Mutate returning an error
// leaves the stored entry untouched.
func (l *Ledger) Update(_ context.Context, id uuid.UUID, mutate func(*models.Upload) error) (*models.Upload, error) {
	if err := l.guard(); err != nil {
		return nil, err
	}

	var u models.Upload
	err := l.db.Update(func(txn *badger.Txn) error {
		if err := readUpload(txn, uploadKey(id), &u); err != nil {
			return err
		}
		if err := mutate(&u); err != nil {
			return err
		}
		u.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&u)
		if err != nil {
			return fmt.Errorf("marshal upload: %w", err)
		}
		entry := badger.NewEntry(uploadKey(id), data)
		if l.retention > 0 {
			entry = entry.WithTTL(l.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}

		if u.State == models.UploadStateCompleted && u.ContentHash != "" {
			idx := badger.NewEntry(hashKey(u.OwnerKey, u.ContentHash), []byte(u.ID.String()))
			if l.retention > 0 {
				idx = idx.WithTTL(l.retention)
			}
			return txn.SetEntry(idx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindCompletedByHash looks up a previously completed upload with the same
// owner and content hash. Returns ErrUploadNotFound when no completed
// upload carried this content.
func (l *Ledger) FindCompletedByHash(_ context.Context, owner, contentHash string) (*models.Upload, error) {
	if err := l.guard(); err != nil {
		return nil, err
	}

	var u models.Upload
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(hashKey(owner, contentHash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUploadNotFound
		}
		if err != nil {
			return fmt.Errorf("get hash index: %w", err)
		}

		var id uuid.UUID
		if err := item.Value(func(val []byte) error {
			parsed, parseErr := uuid.Parse(string(val))
			id = parsed
			return parseErr
		}); err != nil {
			return fmt.Errorf("parse hash index value: %w", err)
		}

		return readUpload(txn, uploadKey(id), &u)
	})
	if err != nil {
		return nil, err
	}
	// The index is only written for completed uploads, but the entry may
	// have been rewritten since.
	if u.State != models.UploadStateCompleted {
		return nil, ErrUploadNotFound
	}
	return &u, nil
}

// List returns up to limit entries, most recently received first.
func (l *Ledger) List(ctx context.Context, limit int) ([]*models.Upload, error) {
	if err := l.guard(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	var entries []*models.Upload
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixUpload)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var u models.Upload
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &u)
			}); err != nil {
				logging.Warn().
					Str("key", string(it.Item().Key())).
					Str("error", err.Error()).
					Msg("Skipping unreadable ledger entry")
				continue
			}
			entries = append(entries, &u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ReceivedAt.After(entries[j].ReceivedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// MarkInterrupted sweeps entries stuck in a non-terminal state and fails
// them. Run once at startup: anything non-terminal at that point belonged
// to a process that died mid-upload.
func (l *Ledger) MarkInterrupted(ctx context.Context) (int, error) {
	if err := l.guard(); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var marked int

	err := l.db.Update(func(txn *badger.Txn) error {
		type rewrite struct {
			key  []byte
			data []byte
		}
		var rewrites []rewrite

		// Collect first: the iterator must be closed before this
		// transaction writes.
		collect := func() error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = true
			it := txn.NewIterator(opts)
			defer it.Close()

			prefix := []byte(prefixUpload)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				item := it.Item()
				var u models.Upload
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &u)
				}); err != nil {
					continue
				}
				if u.State.Terminal() {
					continue
				}

				u.State = models.UploadStateFailed
				u.Error = "interrupted by restart"
				u.UpdatedAt = now
				finished := now
				u.FinishedAt = &finished

				data, err := json.Marshal(&u)
				if err != nil {
					continue
				}
				key := make([]byte, len(item.Key()))
				copy(key, item.Key())
				rewrites = append(rewrites, rewrite{key: key, data: data})
			}
			return nil
		}
		if err := collect(); err != nil {
			return err
		}

		for _, rw := range rewrites {
			entry := badger.NewEntry(rw.key, rw.data)
			if l.retention > 0 {
				entry = entry.WithTTL(l.retention)
			}
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark interrupted uploads: %w", err)
	}

	if marked > 0 {
		logging.Warn().
			Int("uploads", marked).
			Msg("Failed uploads left non-terminal by a previous run")
	}
	return marked, nil
}

// EntryCount returns the number of upload entries currently stored.
func (l *Ledger) EntryCount(_ context.Context) (int64, error) {
	if err := l.guard(); err != nil {
		return 0, err
	}

	var count int64
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixUpload)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RunGC reclaims value-log space until Badger reports nothing left to
// rewrite.
func (l *Ledger) RunGC() error {
	if err := l.guard(); err != nil {
		return err
	}

	for {
		err := l.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ledger gc: %w", err)
		}
	}
}

func readUpload(txn *badger.Txn, key []byte, u *models.Upload) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrUploadNotFound
	}
	if err != nil {
		return fmt.Errorf("get upload entry: %w", err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, u)
	}); err != nil {
		return fmt.Errorf("unmarshal upload entry: %w", err)
	}
	return nil
}

func uploadKey(id uuid.UUID) []byte {
	return []byte(prefixUpload + id.String())
}

func hashKey(owner, contentHash string) []byte {
	return []byte(prefixHash + owner + ":" + contentHash)
}
