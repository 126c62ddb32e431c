package store

import (
	"sync"

	"github.com/vibecheck/vibecheck-dash/internal/api"
)

// Findings holds the findings of one assessment at a time. The collection is
// immutable between fetches: there is no partial merge, only wholesale
// replacement tagged with the owning assessment id.
type Findings struct {
	mu    sync.RWMutex
	owner string
	items []api.Finding
}

func NewFindings() *Findings {
	return &Findings{}
}

// ReplaceAll installs a fresh snapshot for the given owner.
func (s *Findings) ReplaceAll(owner string, items []api.Finding) {
	copied := make([]api.Finding, len(items))
	copy(copied, items)
	s.mu.Lock()
	s.owner = owner
	s.items = copied
	s.mu.Unlock()
}

// Invalidate clears the collection and re-tags it with the next owner, so no
// reader ever sees finding rows labeled with a different assessment while a
// fetch is in flight.
func (s *Findings) Invalidate(nextOwner string) {
	s.mu.Lock()
	s.owner = nextOwner
	s.items = nil
	s.mu.Unlock()
}

// ForOwner returns the collection only when it belongs to the requested
// assessment.
func (s *Findings) ForOwner(owner string) ([]api.Finding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if owner == "" || s.owner != owner {
		return nil, false
	}
	out := make([]api.Finding, len(s.items))
	copy(out, s.items)
	return out, true
}

// Get returns one finding by id from the current collection.
func (s *Findings) Get(owner, id string) (api.Finding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.owner != owner {
		return api.Finding{}, false
	}
	for _, f := range s.items {
		if f.ID == id {
			return f, true
		}
	}
	return api.Finding{}, false
}

func (s *Findings) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}
