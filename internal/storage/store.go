package storage

import (
	"context"
	"errors"
)

// ErrCorruptSnapshot is returned by Load when a snapshot exists but
// cannot be decoded. Callers decide whether to fall back to an empty
// snapshot; the store never swallows the condition itself.
var ErrCorruptSnapshot = errors.New("storage: corrupt snapshot")

// Store persists the full user snapshot. Load returns an empty
// snapshot (not ErrNotFound) when nothing has been saved yet. Save
// replaces the previous snapshot wholesale and must be atomic: a crash
// mid-write never leaves a partially written snapshot behind.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
	Close() error
}
