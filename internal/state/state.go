package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	stateFileName = "positions.json"
	hashBytes     = 8192 // First 8KB for content hash
)

// ReadingState stores the resume position and narration settings for a file.
type ReadingState struct {
	Page  int     `json:"page"`
	Rate  float64 `json:"rate,omitempty"`
	Voice string  `json:"voice,omitempty"`
}

// Store manages persistent reading state.
type Store struct {
	path string
	data map[string]ReadingState
	mu   sync.RWMutex
}

// NewStore creates or loads state from XDG_STATE_HOME/lector/.
func NewStore() (*Store, error) {
	dir := getStateDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	store := &Store{
		path: filepath.Join(dir, stateFileName),
		data: make(map[string]ReadingState),
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = make(map[string]ReadingState)
	}
	return store, nil
}

// getStateDir returns XDG_STATE_HOME/lector or ~/.local/state/lector
func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "lector")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "lector")
}

// ComputeHash generates content hash for file identity
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

// Get returns the saved state for a file hash, or the zero state.
func (s *Store) Get(hash string) ReadingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[hash]
}

// Set saves the state for a file hash.
func (s *Store) Set(hash string, rs ReadingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = rs
	return s.save()
}

// Clear removes the saved state for a file hash.
func (s *Store) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
