package store

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/joeycumines/bt-inspector/internal/protocol"
)

type memoryFile struct {
	name protocol.FileName
	data protocol.FileData
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu     sync.Mutex
	files  map[protocol.FileID]memoryFile
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[protocol.FileID]memoryFile)}
}

func (m *MemoryStore) List() ([]protocol.FileEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]protocol.FileEntry, 0, len(m.files))
	for id, f := range m.files {
		out = append(out, protocol.FileEntry{ID: id, Name: f.name})
	}
	slices.SortFunc(out, func(a, b protocol.FileEntry) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *MemoryStore) Load(id protocol.FileID) (protocol.FileData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	f, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("load %q: %w", id, ErrNotFound)
	}
	return slices.Clone(f.data), nil
}

func (m *MemoryStore) Save(id protocol.FileID, name protocol.FileName, data protocol.FileData) error {
	if err := validateEntry(id, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.files[id] = memoryFile{name: name, data: slices.Clone(data)}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
