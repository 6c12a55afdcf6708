package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Persisted keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrStorageCorrupted is returned when the persisted medium cannot be read
// back as a key/value set.
var ErrStorageCorrupted = errors.New("session storage corrupted")

// Tx is a view of the storage inside an Update transaction.
type Tx interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Storage is the durable key/value medium behind a Store.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	// Clear drops every key, including ones the Store does not own.
	Clear() error
	// Update applies fn atomically. Nothing is written when fn fails.
	Update(fn func(Tx) error) error
}

type mapTx map[string]string

func (m mapTx) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapTx) Set(key, value string) { m[key] = value }

func (m mapTx) Remove(key string) { delete(m, key) }

// MemoryStorage keeps keys in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	return m.Update(func(tx Tx) error {
		tx.Set(key, value)
		return nil
	})
}

func (m *MemoryStorage) Remove(key string) error {
	return m.Update(func(tx Tx) error {
		tx.Remove(key)
		return nil
	})
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	return nil
}

func (m *MemoryStorage) Update(fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(mapTx, len(m.data))
	for k, v := range m.data {
		next[k] = v
	}
	if err := fn(next); err != nil {
		return err
	}
	m.data = next
	return nil
}

// FileStorage persists keys as a JSON object in a single file. Every write
// replaces the file atomically.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage returns a FileStorage at path, creating its directory with
// 0700 permissions.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("session file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStorage{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *FileStorage) Set(key, value string) error {
	return f.Update(func(tx Tx) error {
		tx.Set(key, value)
		return nil
	})
}

func (f *FileStorage) Remove(key string) error {
	return f.Update(func(tx Tx) error {
		tx.Remove(key)
		return nil
	})
}

// Clear removes the backing file. It succeeds on a corrupted file.
func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (f *FileStorage) Update(fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return f.save(data)
}

func (f *FileStorage) load() (mapTx, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(mapTx), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupted, err)
	}

	data := make(mapTx)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupted, err)
	}
	return data, nil
}

func (f *FileStorage) save(data mapTx) error {
	if len(data) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close session: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename session: %w", err)
	}
	return nil
}
