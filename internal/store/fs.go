package store

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joeycumines/bt-inspector/internal/protocol"
)

const (
	fileSuffix = ".bt.yaml"
	indexFile  = "index.yaml"
	lockFile   = ".lock"
)

// index maps file ids to names. File data lives alongside it, one file per
// id.
type index struct {
	Files []protocol.FileEntry `yaml:"files"`
}

// FileSystemStore keeps each behavior file as <dir>/<id>.bt.yaml, with names
// in <dir>/index.yaml. It holds an exclusive lock on the directory for its
// lifetime.
type FileSystemStore struct {
	dir    string
	lock   *os.File
	mu     sync.Mutex
	names  map[protocol.FileID]protocol.FileName
	closed bool
}

// OpenFileSystemStore opens (creating if needed) the store in dir. It fails
// with ErrWouldBlock if another process has it open.
func OpenFileSystemStore(dir string) (*FileSystemStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	lock, err := lockDir(filepath.Join(dir, lockFile))
	if err != nil {
		return nil, fmt.Errorf("lock store %q: %w", dir, err)
	}
	s := &FileSystemStore{dir: dir, lock: lock, names: make(map[protocol.FileID]protocol.FileName)}
	if err := s.readIndex(); err != nil {
		return nil, errors.Join(err, unlockDir(lock))
	}
	return s, nil
}

// Dir returns the store directory.
func (s *FileSystemStore) Dir() string { return s.dir }

func (s *FileSystemStore) readIndex() error {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read index: %w", err)
	}
	var idx index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse index: %w", err)
	}
	for _, f := range idx.Files {
		if err := validateEntry(f.ID, f.Name); err != nil {
			slog.Warn("[Store] Skipping invalid index entry", "id", f.ID, "error", err)
			continue
		}
		s.names[f.ID] = f.Name
	}
	return nil
}

func (s *FileSystemStore) writeIndex() error {
	data, err := yaml.Marshal(index{Files: s.entries()})
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir, indexFile), data, 0o644)
}

func (s *FileSystemStore) entries() []protocol.FileEntry {
	out := make([]protocol.FileEntry, 0, len(s.names))
	for id, name := range s.names {
		out = append(out, protocol.FileEntry{ID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b protocol.FileEntry) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (s *FileSystemStore) path(id protocol.FileID) string {
	return filepath.Join(s.dir, string(id)+fileSuffix)
}

// List implements Store.
func (s *FileSystemStore) List() ([]protocol.FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.entries(), nil
}

// Load implements Store.
func (s *FileSystemStore) Load(id protocol.FileID) (protocol.FileData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.names[id]; !ok {
		return nil, fmt.Errorf("load %q: %w", id, ErrNotFound)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load %q: %w", id, err)
	}
	return data, nil
}

// Save implements Store. The data file is written before the index, so a
// crash in between leaves an unindexed file rather than a dangling entry.
func (s *FileSystemStore) Save(id protocol.FileID, name protocol.FileName, data protocol.FileData) error {
	if err := validateEntry(id, name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := writeFileAtomic(s.path(id), data, 0o644); err != nil {
		return fmt.Errorf("save %q: %w", id, err)
	}
	prev, had := s.names[id]
	s.names[id] = name
	if had && prev == name {
		return nil
	}
	if err := s.writeIndex(); err != nil {
		if had {
			s.names[id] = prev
		} else {
			delete(s.names, id)
		}
		return fmt.Errorf("save %q: %w", id, err)
	}
	return nil
}

// Close releases the directory lock.
func (s *FileSystemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := unlockDir(s.lock)
	s.lock = nil
	return err
}
