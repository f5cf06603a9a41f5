package sessions

import (
	"sort"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

type InMemoryRepo struct {
	lock     sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]*Session),
	}
}

func (r *InMemoryRepo) Swap(ownerID string, s *Session) *Session {
	r.lock.Lock()
	defer r.lock.Unlock()
	previous := r.sessions[ownerID]
	r.sessions[ownerID] = s
	return previous
}

func (r *InMemoryRepo) Get(ownerID string) (*Session, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.sessions[ownerID]
	return s, ok
}

func (r *InMemoryRepo) Delete(ownerID string) (*Session, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.sessions[ownerID]
	if ok {
		delete(r.sessions, ownerID)
	}
	return s, ok
}

func (r *InMemoryRepo) CompareAndDelete(ownerID string, s *Session) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if current, ok := r.sessions[ownerID]; ok && current == s {
		delete(r.sessions, ownerID)
		return true
	}
	return false
}

// List is ordered by owner id.
func (r *InMemoryRepo) List() []*Session {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	return out
}
