// Package memory is an in-memory remote.Store for tests and offline
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"moneta/internal/remote"
)

type Store struct {
	mu   sync.Mutex
	data []byte
	rev  int
}

// Ensure interface conformance
var _ remote.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Get(_ context.Context) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, "", remote.ErrNotFound
	}
	data := append([]byte(nil), s.data...)
	return data, s.revision(), nil
}

func (s *Store) Put(_ context.Context, data []byte, expectedRevision string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expectedRevision != s.revision() && !(s.data == nil && expectedRevision == "") {
		return "", remote.ErrConflict
	}
	s.data = append([]byte(nil), data...)
	s.rev++
	return s.revision(), nil
}

func (s *Store) revision() string {
	if s.rev == 0 {
		return ""
	}
	return fmt.Sprintf("mem:%d", s.rev)
}
