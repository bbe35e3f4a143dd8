// Package ledger records which tracks have been fully ingested so a
// restarted batch can skip them.
package ledger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

const trackPrefix = "track/"

// Ledger is a badger-backed set of completed track ids with their genre.
type Ledger struct {
	db *badger.DB
}

// Open opens (or creates) a ledger in dir.
func Open(dir string) (*Ledger, error) {
	if dir == "" {
		return nil, fmt.Errorf("ledger: empty directory")
	}
	return open(badger.DefaultOptions(dir).WithLogger(nil))
}

// OpenInMemory opens a ledger that lives only for the process lifetime.
func OpenInMemory() (*Ledger, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Ledger, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	return &Ledger{db: db}, nil
}

func key(trackID string) []byte { return []byte(trackPrefix + trackID) }

// Done reports whether trackID was marked complete.
func (l *Ledger) Done(trackID string) (bool, error) {
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(trackID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger: get %s: %w", trackID, err)
	}
	return true, nil
}

// MarkDone records trackID as completed under genre.
func (l *Ledger) MarkDone(trackID, genre string) error {
	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(trackID), []byte(genre))
	})
	if err != nil {
		return fmt.Errorf("ledger: set %s: %w", trackID, err)
	}
	return nil
}

// Tracks returns every completed track id mapped to its genre.
func (l *Ledger) Tracks() (map[string]string, error) {
	out := map[string]string{}
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(trackPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(trackPrefix):])
			if err := item.Value(func(val []byte) error {
				out[id] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: scan: %w", err)
	}
	return out, nil
}

// Reset removes every entry.
func (l *Ledger) Reset() error {
	if err := l.db.DropPrefix([]byte(trackPrefix)); err != nil {
		return fmt.Errorf("ledger: reset: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }
