package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the whole user collection in a single JSON file. Every
// Save rewrites the file; there is no partial update.
type FileStore struct {
	mu     sync.Mutex
	path   string
	perm   os.FileMode
	logger *slog.Logger
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created on first Save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, perm: 0o600, logger: logger}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the collection. A missing, empty or unparsable file yields an
// empty collection; a single unreadable record is skipped. Only genuine read
// failures are returned.
func (s *FileStore) Load(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []User{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, s.path, err)
	}
	if len(b) == 0 {
		return []User{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		s.logger.Warn("user store unreadable, treating as empty", slog.String("path", s.path), slog.Any("error", err))
		return []User{}, nil
	}

	users := make([]User, 0, len(raw))
	for i, item := range raw {
		if string(item) == "null" {
			continue
		}
		var u User
		if err := json.Unmarshal(item, &u); err != nil {
			s.logger.Warn("user record unreadable, skipping", slog.String("path", s.path), slog.Int("index", i), slog.Any("error", err))
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// Save atomically replaces the file with users.
func (s *FileStore) Save(_ context.Context, users []User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if users == nil {
		users = []User{}
	}
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode users: %v", ErrStorage, err)
	}
	b = append(b, '\n')

	if err := writeFileAtomic(s.path, b, s.perm); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, s.path, err)
	}
	return nil
}

// Ping reports whether the directory holding the file is reachable.
func (s *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".users-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
