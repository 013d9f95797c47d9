package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"shareVault/internal/model"
)

// Store provides embedded persistence for vault snapshots and events when
// no Postgres DSN is configured.
//
// Keys:
//   Snapshot: "snapshot:<name>" -> JSON snapshot
//   Event:    "event:<run_id>:<seq>" -> JSON event record
type Store struct {
	db *badger.DB
}

// NewStore opens a Badger store at path. An empty path opens an
// in-memory store.
func NewStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// SaveSnapshot stores the snapshot under name.
func (s *Store) SaveSnapshot(ctx context.Context, name string, snap model.Snapshot) error {
	if name == "" {
		return fmt.Errorf("snapshot name required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("snapshot:"+name), data)
	})
}

// LoadSnapshot reads back the snapshot stored under name.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (model.Snapshot, bool, error) {
	if name == "" {
		return model.Snapshot{}, false, fmt.Errorf("snapshot name required")
	}
	var snap model.Snapshot
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("snapshot:" + name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return model.Snapshot{}, false, err
	}
	return snap, found, nil
}

// AppendEvents stores a batch of emitted event records.
func (s *Store) AppendEvents(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			key := fmt.Sprintf("event:%s:%d", ev.RunID, ev.Seq)
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}
