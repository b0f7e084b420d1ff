package columns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists visible accessor lists keyed by screen route. Reads happen
// at mount, writes on commit of the columns picker; both are synchronous.
type Store interface {
	Load(route string) ([]string, bool, error)
	Save(route string, visible []string) error
}

// FileStore keeps the whole route-to-accessors mapping in one JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates the preference file's directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create prefs directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(route string) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return nil, false, err
	}
	visible, ok := all[route]
	return visible, ok, nil
}

func (s *FileStore) Save(route string, visible []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		all = map[string][]string{}
	}
	all[route] = visible
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal column prefs: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write column prefs: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string][]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("read column prefs: %w", err)
	}
	var all map[string][]string
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse column prefs: %w", err)
	}
	return all, nil
}

// MemStore is the in-memory Store used in tests and when persistence is off.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]string
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]string{}}
}

func (s *MemStore) Load(route string) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible, ok := s.data[route]
	return visible, ok, nil
}

func (s *MemStore) Save(route string, visible []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[route] = append([]string(nil), visible...)
	return nil
}
