package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var ErrNotFound = errors.New("preference not found")

// Preferences is a small key-value store for user settings such as the theme
type Preferences interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// FileStore keeps preferences in a JSON file
type FileStore struct {
	mu     sync.RWMutex
	values map[string]string
	file   string
}

// NewFileStore creates a new file-backed store, loading the file if it exists
func NewFileStore(filePath string) (*FileStore, error) {
	s := &FileStore{
		values: make(map[string]string),
		file:   filePath,
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("failed to load storage: %w", err)
		}
	}

	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

// Set stores value under key and writes the file
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.Save()
}

// Save writes the preferences to file. Callers hold the lock.
func (s *FileStore) Save() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(s.file, data, 0644)
}

// Load loads preferences from file
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		s.values = make(map[string]string)
		return nil
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}

	return nil
}

// Memory is an in-process store, used when nothing should touch disk
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
