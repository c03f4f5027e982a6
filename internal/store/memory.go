package store

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	entries     map[string]Entry
	// order keeps insertion order to break creation time ties.
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.entries = make(map[string]Entry)
	s.order = nil
	return nil
}

func (s *MemoryStore) Save(_ context.Context, e Entry) (Entry, error) {
	e, err := prepare(e)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return Entry{}, ErrNotInitialized
	}
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.entries[e.ID] = e
	return e, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return Entry{}, false, ErrNotInitialized
	}

	e, ok := s.entries[id]
	return e, ok, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return s.sorted(), nil
}

func (s *MemoryStore) sorted() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) Rate(_ context.Context, id string, rating int) (bool, error) {
	if err := checkRating(rating); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return false, ErrNotInitialized
	}
	e, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	e.Rating = rating
	s.entries[id] = e
	return true, nil
}

func (s *MemoryStore) NextUnrated(_ context.Context) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return Entry{}, false, ErrNotInitialized
	}
	for _, e := range s.sorted() {
		if e.Rating == Unrated {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
