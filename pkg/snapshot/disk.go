package snapshot

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DiskStore keeps snapshots as files in a directory, one per id.
//
// Ids are hex-encoded into file names so any id is a safe name. Writes go to
// a temporary file that is renamed into place.
type DiskStore struct {
	dir string

	mu     sync.Mutex
	closed bool
}

type diskRecord struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// NewDiskStore creates dir if needed and returns a store rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot: disk store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory holding the snapshot files.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(id))+".snap")
}

// Save implements Store.
func (s *DiskStore) Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if !expiresAt.IsZero() && !expiresAt.After(time.Now()) {
		return s.remove(id)
	}

	body, err := json.Marshal(diskRecord{Data: data, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("snapshot: encode %q: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snap-*")
	if err != nil {
		return fmt.Errorf("snapshot: save %q: %w", id, err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot: save %q: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot: save %q: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot: save %q: %w", id, err)
	}
	return nil
}

// Load implements Store. Expired files are removed on read.
func (s *DiskStore) Load(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	body, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %q: %w", id, err)
	}

	var rec diskRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("snapshot: decode %q: %w", id, err)
	}
	if !rec.ExpiresAt.IsZero() && !rec.ExpiresAt.After(time.Now()) {
		return nil, s.remove(id)
	}
	return rec.Data, nil
}

// Delete implements Store.
func (s *DiskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.remove(id)
}

func (s *DiskStore) remove(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("snapshot: delete %q: %w", id, err)
	}
	return nil
}

// Close implements Store. Files stay on disk.
func (s *DiskStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
