package storage

import (
	"context"
	"sync"
)

type roundShard struct {
	mu   sync.RWMutex
	subs map[string][]float64
}

type inMemoryStorage struct {
	mu     sync.RWMutex
	rounds map[uint64]*roundShard
}

// NewInMemoryStorage returns a RoundStore with one lock per round, so
// writers of different rounds never contend.
func NewInMemoryStorage() RoundStore {
	return &inMemoryStorage{
		rounds: make(map[uint64]*roundShard),
	}
}

func (s *inMemoryStorage) shard(round uint64, create bool) *roundShard {
	s.mu.RLock()
	sh, ok := s.rounds[round]
	s.mu.RUnlock()
	if ok || !create {
		return sh
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sh, ok = s.rounds[round]; ok {
		return sh
	}
	sh = &roundShard{subs: make(map[string][]float64)}
	s.rounds[round] = sh

	return sh
}

func (s *inMemoryStorage) Put(_ context.Context, round uint64, clientID string, params []float64) error {
	if err := ValidateClientID(clientID); err != nil {
		return err
	}

	stored := make([]float64, len(params))
	copy(stored, params)

	sh := s.shard(round, true)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.subs[clientID] = stored

	return nil
}

func (s *inMemoryStorage) Get(_ context.Context, round uint64) (map[string][]float64, error) {
	result := make(map[string][]float64)

	sh := s.shard(round, false)
	if sh == nil {
		return result, nil
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	for id, params := range sh.subs {
		v := make([]float64, len(params))
		copy(v, params)
		result[id] = v
	}

	return result, nil
}

func (s *inMemoryStorage) Count(_ context.Context, round uint64) (int, error) {
	sh := s.shard(round, false)
	if sh == nil {
		return 0, nil
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return len(sh.subs), nil
}

func (s *inMemoryStorage) Clear(_ context.Context, round uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rounds, round)

	return nil
}

func (s *inMemoryStorage) Close() error {
	return nil
}
