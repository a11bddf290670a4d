package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirSnapshotStore writes snapshot blobs under a base directory, one
// file per snapshot keyed by IMEI, timestamp and message type.
type DirSnapshotStore struct {
	Dir string
}

var _ SnapshotStore = &DirSnapshotStore{}

func NewDirSnapshotStore(dir string) (*DirSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &DirSnapshotStore{Dir: dir}, nil
}

func (ds *DirSnapshotStore) Save(_ context.Context, imei string, ts time.Time, kind uint8, data []byte) (string, error) {
	dir := filepath.Join(ds.Dir, imei)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%02X.bin", ts.UnixMilli(), kind))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
