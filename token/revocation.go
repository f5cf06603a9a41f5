package token

import (
	"sync"
	"time"
)

// LogoutList holds the ids of dashboard tokens that were logged out before they expired.
// An entry only matters until its token's own expiry, after which Prune may drop it.
type LogoutList interface {
	Add(tokenID string, expiresAt time.Time) error
	Contains(tokenID string, now time.Time) bool
	Prune(now time.Time) int
}

type MemoryLogoutList struct {
	lock    sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryLogoutList() *MemoryLogoutList {
	return &MemoryLogoutList{entries: make(map[string]time.Time)}
}

func (l *MemoryLogoutList) Add(tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.entries[tokenID] = expiresAt
	return nil
}

// Contains reports a logged out token that has not yet expired.
func (l *MemoryLogoutList) Contains(tokenID string, now time.Time) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	exp, ok := l.entries[tokenID]
	return ok && now.Before(exp)
}

// Prune drops expired entries and returns how many were removed.
func (l *MemoryLogoutList) Prune(now time.Time) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	removed := 0
	for id, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

func (l *MemoryLogoutList) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.entries)
}
