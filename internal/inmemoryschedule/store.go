package inmemoryschedule

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/schedule"
	"github.com/vk/memsched/internal/schedulestore"
)

type entry struct {
	seq   schedule.Sequence
	bytes int64
}

// Store implements the schedulestore.Store interface using a map and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu      sync.RWMutex
	entries map[*hlo.Computation]entry
}

// New creates a new, empty in-memory schedule store.
func New() schedulestore.Store {
	return &Store{entries: make(map[*hlo.Computation]entry)}
}

// Put stores the sequence of c once.
func (s *Store) Put(ctx context.Context, c *hlo.Computation, seq schedule.Sequence, memoryBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[c]; exists {
		return fmt.Errorf("%w: '%s'", schedulestore.ErrAlreadyScheduled, c.Name())
	}
	s.entries[c] = entry{seq: append(schedule.Sequence(nil), seq...), bytes: memoryBytes}
	return nil
}

// Sequence returns the stored sequence of c.
func (s *Store) Sequence(ctx context.Context, c *hlo.Computation) (schedule.Sequence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[c]
	return e.seq, ok
}

// MemoryFor returns the stored minimum memory of c.
func (s *Store) MemoryFor(c *hlo.Computation) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[c]
	return e.bytes, ok
}

// Snapshot returns a copy of every stored sequence.
func (s *Store) Snapshot(ctx context.Context) schedule.ModuleSequence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(schedule.ModuleSequence, len(s.entries))
	for c, e := range s.entries {
		out[c] = append(schedule.Sequence(nil), e.seq...)
	}
	return out
}
