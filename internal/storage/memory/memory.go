// Package memory is an in-process storage.Store. It backs STORE_PATH=":memory:"
// and the tests of packages that need a store without SQLite.
package memory

import (
	"context"
	"sync"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/apperror"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, apperror.NotFound("storage key", key)
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
