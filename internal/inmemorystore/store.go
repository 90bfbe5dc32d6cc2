package inmemorystore

import (
	"sync"

	"github.com/vk/opgraph/internal/nodeid"
	"github.com/vk/opgraph/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
//
// A single mutex guards the whole map. CompareAndSet has to read and write an
// entry atomically, and Counts has to see a consistent snapshot, which rules
// out per-key sync.Map access.
//
// Generations come from one counter shared by all entries, so an id that is
// deleted and registered again never gets a generation it had before.
type Store struct {
	mu      sync.Mutex
	entries map[nodeid.ID]nodestore.Entry
	last    uint64
}

var _ nodestore.Store = (*Store)(nil)

// New creates a new, empty in-memory evaluation cache.
func New() *Store {
	return &Store{entries: make(map[nodeid.ID]nodestore.Entry)}
}

// Register creates an unset entry for id.
func (s *Store) Register(id nodeid.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return false
	}
	s.entries[id] = nodestore.Entry{Generation: s.nextGeneration()}
	return true
}

// nextGeneration must be called with mu held.
func (s *Store) nextGeneration() uint64 {
	s.last++
	return s.last
}

// Get returns the entry for id.
func (s *Store) Get(id nodeid.ID) (nodestore.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// Set stores a computed artifact for id.
func (s *Store) Set(id nodeid.ID, artifact any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = nodestore.Entry{Artifact: artifact, Computed: true, Generation: s.nextGeneration()}
}

// CompareAndSet stores artifact only if id's generation is unchanged.
func (s *Store) CompareAndSet(id nodeid.ID, generation uint64, artifact any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.Generation != generation {
		return false
	}
	s.entries[id] = nodestore.Entry{Artifact: artifact, Computed: true, Generation: s.nextGeneration()}
	return true
}

// Clear returns id to the unset state.
func (s *Store) Clear(id nodeid.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	s.entries[id] = nodestore.Entry{Generation: s.nextGeneration()}
	return e.Computed
}

// Delete removes id's entry.
func (s *Store) Delete(id nodeid.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// IDs returns the registered ids in sorted order.
func (s *Store) IDs() []nodeid.ID {
	s.mu.Lock()
	ids := make([]nodeid.ID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	nodeid.Sort(ids)
	return ids
}

// Counts returns the number of computed and unset entries.
func (s *Store) Counts() (computed, unset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Computed {
			computed++
		} else {
			unset++
		}
	}
	return computed, unset
}
