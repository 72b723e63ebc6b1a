package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/pkg/chat"
)

// FileStore persists the workspace as JSON files. Storage layout:
//
//	~/.visionary/
//	  ├── history.json     # Chat transcript
//	  ├── document.json    # Canvas state
//	  └── credential       # Provider API key (0600)
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

const (
	historyFile    = "history.json"
	documentFile   = "document.json"
	credentialFile = "credential"
)

// NewFileStore creates a file-backed store. If baseDir is empty, uses
// ~/.visionary.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".visionary")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &FileStore{baseDir: baseDir}, nil
}

// LoadHistory implements Store.
func (f *FileStore) LoadHistory(ctx context.Context) ([]chat.Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrStoreClosed
	}

	var messages []chat.Message
	if err := f.readJSON(historyFile, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveHistory implements Store.
func (f *FileStore) SaveHistory(ctx context.Context, messages []chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrStoreClosed
	}
	return f.writeJSON(historyFile, messages)
}

// LoadDocument implements Store.
func (f *FileStore) LoadDocument(ctx context.Context) (document.State, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return document.State{}, ErrStoreClosed
	}

	var state document.State
	if err := f.readJSON(documentFile, &state); err != nil {
		return document.State{}, err
	}
	return state, nil
}

// SaveDocument implements Store.
func (f *FileStore) SaveDocument(ctx context.Context, state document.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrStoreClosed
	}
	return f.writeJSON(documentFile, state)
}

// LoadCredential implements Store.
func (f *FileStore) LoadCredential(ctx context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", ErrStoreClosed
	}

	data, err := os.ReadFile(filepath.Join(f.baseDir, credentialFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read credential: %w", err)
	}
	return string(data), nil
}

// SaveCredential implements Store.
func (f *FileStore) SaveCredential(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrStoreClosed
	}

	path := filepath.Join(f.baseDir, credentialFile)
	if err := os.WriteFile(path, []byte(key), 0600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Reset implements Store.
func (f *FileStore) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrStoreClosed
	}

	for _, name := range []string{historyFile, documentFile} {
		if err := os.Remove(filepath.Join(f.baseDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(f.baseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (f *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(f.baseDir, name), data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
