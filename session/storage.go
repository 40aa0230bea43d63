package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrStorageUnavailable wraps backend failures (disk or Redis) so callers can
// distinguish them from an absent record.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Storage persists a [Record] across process restarts. Load returns (nil, nil)
// when no record exists; Clear is a no-op on an empty backend.
type Storage interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context) (*Record, error)
	Clear(ctx context.Context) error
}

// MemoryStorage keeps the record in process memory. Used in tests and by
// processes that do not want sessions to survive a restart.
type MemoryStorage struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Save stores a copy of the record.
func (s *MemoryStorage) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	if rec.User != nil {
		u := *rec.User
		cp.User = &u
	}
	s.rec = &cp
	return nil
}

// Load returns a copy of the stored record, or (nil, nil) when empty.
func (s *MemoryStorage) Load(_ context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	if s.rec.User != nil {
		u := *s.rec.User
		cp.User = &u
	}
	return &cp, nil
}

// Clear drops the stored record.
func (s *MemoryStorage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

// FileStorage persists the record as a JSON blob on disk, mode 0600. It is the
// Go analog of the browser's local storage namespace.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file-backed storage at the given path. The parent
// directory must exist.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Save writes the record to disk, replacing any previous one.
func (s *FileStorage) Save(_ context.Context, rec *Record) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := os.WriteFile(s.path, encoded, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Load reads the record from disk. A missing file is an absent record, not an
// error; a corrupt file is treated as absent as well, since a session blob is
// always recoverable by logging in again.
func (s *FileStorage) Load(_ context.Context) (*Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, nil
	}
	return rec, nil
}

// Clear removes the file. Idempotent.
func (s *FileStorage) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
