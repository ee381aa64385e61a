package trace

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/multierr"
)

const storeKeyPrefix = "trace-"

// Store persists completed traces in a badger database, keyed by run id.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) a trace store in dir.
func OpenStore(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemoryStore opens a store that lives only for the process lifetime.
// Mostly useful in tests.
func OpenInMemoryStore() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func storeKey(runID string) []byte {
	return []byte(storeKeyPrefix + runID)
}

// Put stores the gob encoding of t under runID, replacing any previous trace
// with the same id.
func (s *Store) Put(runID string, t *Trace) error {
	encoded, err := EncodeGob(t)
	if err != nil {
		return fmt.Errorf("encoding trace %q: %w", runID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(runID), encoded)
	})
}

// Get loads the trace stored under runID.
func (s *Store) Get(runID string) (*Trace, error) {
	var t *Trace
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(runID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := DecodeGob(val)
			if err != nil {
				return err
			}
			t = decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading trace %q: %w", runID, err)
	}
	return t, nil
}

// RunIDs lists the ids of all stored traces.
func (s *Store) RunIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(storeKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, storeKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete removes the trace stored under runID, if any.
func (s *Store) Delete(runID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(runID))
	})
}

// Close flushes and closes the underlying database.
func (s *Store) Close() (err error) {
	err = multierr.Append(err, s.db.Close())
	return err
}
