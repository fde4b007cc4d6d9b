package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore JSON file of "spyosint_<provider>" -> secret, written with 0600
type FileStore struct {
	mu   sync.Mutex
	path string
}

// DefaultFilePath ~/.spyosint/credentials.json, or ./credentials.json without a home directory
func DefaultFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "credentials.json"
	}
	return filepath.Join(homeDir, ".spyosint", "credentials.json")
}

// NewFileStore creates a store at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath()
	}
	return &FileStore{path: path}
}

// Path location of the backing file
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(_ context.Context, providerID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[Key(providerID)]
	return v, ok, nil
}

func (f *FileStore) Set(ctx context.Context, providerID, secret string) error {
	if secret == "" {
		return f.Clear(ctx, providerID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[Key(providerID)] = secret
	return f.save(values)
}

func (f *FileStore) Clear(_ context.Context, providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[Key(providerID)]; !ok {
		return nil
	}
	delete(values, Key(providerID))
	return f.save(values)
}

func (f *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	return values, nil
}

func (f *FileStore) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}
