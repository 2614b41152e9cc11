// Package bolt persists the snapshot in a bbolt database, one record
// per user plus a meta bucket for the schema version and user order.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/harybot/breakroom/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	bucketUsers = "users"
	bucketMeta  = "meta"

	metaKeyVersion = "version"
	metaKeyOrder   = "order"
)

// Store implements storage.Store using bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketUsers, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Load reads the full snapshot. Undecodable records surface as
// storage.ErrCorruptSnapshot.
func (s *Store) Load(ctx context.Context) (*storage.Snapshot, error) {
	snap := storage.NewSnapshot()
	err := s.db.View(func(tx *bbolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(bucketMeta))
		if meta != nil {
			if raw := meta.Get([]byte(metaKeyVersion)); raw != nil {
				var version int
				if err := json.Unmarshal(raw, &version); err != nil {
					return fmt.Errorf("%w: decode version: %v", storage.ErrCorruptSnapshot, err)
				}
				snap.Version = version
			}
			if raw := meta.Get([]byte(metaKeyOrder)); raw != nil {
				if err := json.Unmarshal(raw, &snap.Order); err != nil {
					return fmt.Errorf("%w: decode order: %v", storage.ErrCorruptSnapshot, err)
				}
			}
		}

		users := tx.Bucket([]byte(bucketUsers))
		if users == nil {
			return nil
		}
		return users.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec storage.UserRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: decode user %s: %v", storage.ErrCorruptSnapshot, k, err)
			}
			snap.Users[rec.ID] = &rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Users written before an order entry could be persisted still show
	// up in reports, appended after the recorded order.
	seen := make(map[string]bool, len(snap.Order))
	for _, id := range snap.Order {
		seen[id] = true
	}
	for id := range snap.Users {
		if !seen[id] {
			snap.Order = append(snap.Order, id)
		}
	}

	return snap, nil
}

// Save rewrites the full snapshot in a single transaction.
func (s *Store) Save(ctx context.Context, snapshot *storage.Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := tx.DeleteBucket([]byte(bucketUsers)); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("clear users bucket: %w", err)
		}
		users, err := tx.CreateBucket([]byte(bucketUsers))
		if err != nil {
			return fmt.Errorf("recreate users bucket: %w", err)
		}

		for id, rec := range snapshot.Users {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode user %s: %w", id, err)
			}
			if err := users.Put([]byte(id), data); err != nil {
				return fmt.Errorf("put user %s: %w", id, err)
			}
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
		if err != nil {
			return fmt.Errorf("meta bucket: %w", err)
		}
		version, err := json.Marshal(snapshot.Version)
		if err != nil {
			return fmt.Errorf("encode version: %w", err)
		}
		if err := meta.Put([]byte(metaKeyVersion), version); err != nil {
			return fmt.Errorf("put version: %w", err)
		}
		order, err := json.Marshal(snapshot.Order)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
		if err := meta.Put([]byte(metaKeyOrder), order); err != nil {
			return fmt.Errorf("put order: %w", err)
		}

		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
