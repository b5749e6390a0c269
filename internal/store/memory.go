package store

import (
	"context"
	"sync"

	"inigma/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps records in a mutex-guarded map. It backs tests and
// single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]domain.Secret
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]domain.Secret)}
}

func (s *MemoryStore) Put(ctx context.Context, sec domain.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[sec.ID] = sec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (domain.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.secrets[id]
	if !ok {
		return domain.Secret{}, domain.ErrNotFound
	}
	return sec, nil
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, id string, pred func(domain.Secret) bool, mutate func(*domain.Secret)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.secrets[id]
	if !ok || !pred(sec) {
		return false, nil
	}
	mutate(&sec)
	s.secrets[id] = sec
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.secrets[id]
	delete(s.secrets, id)
	return ok, nil
}

// Scan snapshots under the read lock and iterates outside it, so fn may
// call back into the store without deadlocking.
func (s *MemoryStore) Scan(ctx context.Context, fn func(domain.Secret) error) error {
	s.mu.RLock()
	snapshot := make([]domain.Secret, 0, len(s.secrets))
	for _, sec := range s.secrets {
		snapshot = append(snapshot, sec)
	}
	s.mu.RUnlock()

	for _, sec := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(sec); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the map stays usable so a late Put or lazy delete
// cannot panic during shutdown.
func (s *MemoryStore) Close() error {
	return nil
}
