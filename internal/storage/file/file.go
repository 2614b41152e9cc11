// Package file persists the snapshot as a single JSON file, rewritten
// through a temp file and rename so a crash mid-write cannot leave a
// partially written snapshot behind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harybot/breakroom/internal/storage"
)

// Store implements storage.Store on a JSON snapshot file.
type Store struct {
	path string
}

// Open prepares a file-backed store at path. The file itself is not
// required to exist yet; only its directory is created.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := storage.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Load reads the last saved snapshot. A missing file yields an empty
// snapshot; an unreadable or undecodable file yields ErrCorruptSnapshot
// so the caller can decide to start empty.
func (s *Store) Load(ctx context.Context) (*storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", storage.ErrCorruptSnapshot, s.path, err)
	}
	if snap.Users == nil {
		snap.Users = make(map[string]*storage.UserRecord)
	}
	return &snap, nil
}

// Save atomically replaces the snapshot file.
func (s *Store) Save(ctx context.Context, snapshot *storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error { return nil }
