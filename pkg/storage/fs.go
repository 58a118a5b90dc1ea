package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type fileSubmission struct {
	ClientID    string    `json:"client_id"`
	Params      []float64 `json:"params"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// fsStorage lays submissions out as <dir>/round_<N>/round_<N>_<client>.json.
type fsStorage struct {
	dir string
	// Writers only take the read side; Clear takes the write side so it
	// never races a rename into the directory it removes.
	mu sync.RWMutex
}

func NewFSStorage(dir string) (RoundStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &fsStorage{dir: dir}, nil
}

// RoundDir is the directory holding everything persisted for round.
func RoundDir(dir string, round uint64) string {
	return filepath.Join(dir, fmt.Sprintf("round_%d", round))
}

func submissionPrefix(round uint64) string {
	return fmt.Sprintf("round_%d_", round)
}

func (s *fsStorage) Put(_ context.Context, round uint64, clientID string, params []float64) error {
	if err := ValidateClientID(clientID); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	roundDir := RoundDir(s.dir, round)
	if err := os.MkdirAll(roundDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	data, err := json.Marshal(fileSubmission{
		ClientID:    clientID,
		Params:      params,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	path := filepath.Join(roundDir, submissionPrefix(round)+clientID+".json")
	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (s *fsStorage) Get(_ context.Context, round uint64) (map[string][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]float64)

	names, err := s.submissionFiles(round)
	if err != nil {
		return nil, err
	}

	roundDir := RoundDir(s.dir, round)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(roundDir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
		}

		var sub fileSubmission
		if err := json.Unmarshal(data, &sub); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDBQuery, name, err)
		}
		id := sub.ClientID
		if id == "" {
			id = strings.TrimSuffix(strings.TrimPrefix(name, submissionPrefix(round)), ".json")
		}
		result[id] = sub.Params
	}

	return result, nil
}

func (s *fsStorage) Count(_ context.Context, round uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := s.submissionFiles(round)
	if err != nil {
		return 0, err
	}

	return len(names), nil
}

func (s *fsStorage) submissionFiles(round uint64) ([]string, error) {
	entries, err := os.ReadDir(RoundDir(s.dir, round))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	prefix := submissionPrefix(round)
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}

	return names, nil
}

// Clear removes the submissions of round but keeps any checkpoint stored
// alongside them.
func (s *fsStorage) Clear(_ context.Context, round uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.submissionFiles(round)
	if err != nil {
		return err
	}

	roundDir := RoundDir(s.dir, round)
	for _, name := range names {
		if err := os.Remove(filepath.Join(roundDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrDelete, err)
		}
	}

	return nil
}

func (s *fsStorage) Close() error {
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)

		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)

		return err
	}

	return nil
}
